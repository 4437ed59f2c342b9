package dom

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<html><body>
<div id="EmpLinksWrapper"><div><a href="/overview">Overview</a><a href="/reviews?page=1">Reviews</a></div></div>
<ul><li class="item">one</li><li class="item current">two</li></ul>
<input name="q" value="x">
</body></html>`

func TestStaticPage_FindAndAttributes(t *testing.T) {
	root, err := ParseHTML(listPage)
	require.NoError(t, err)

	items, err := root.FindAll("li.item")
	require.NoError(t, err)
	require.Len(t, items, 2)

	text, err := items[1].Text()
	require.NoError(t, err)
	assert.Equal(t, "two", text)

	_, err = root.Find(".missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, Has(root, ".missing"))
	assert.True(t, Has(root, "input"))

	input, err := root.Find("input")
	require.NoError(t, err)
	v, ok, err := input.Attribute("value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok, _ = input.Attribute("placeholder")
	assert.False(t, ok)
}

func TestStaticPage_FindXPath(t *testing.T) {
	root, err := ParseHTML(listPage)
	require.NoError(t, err)

	link, err := root.FindXPath("//*[@id='EmpLinksWrapper']/div//a[2]")
	require.NoError(t, err)
	href, _, _ := link.Attribute("href")
	assert.Equal(t, "/reviews?page=1", href)

	// Found nodes are regular elements and can be searched further
	wrapper, err := root.FindXPath("//*[@id='EmpLinksWrapper']")
	require.NoError(t, err)
	assert.True(t, Has(wrapper, "a"))

	_, err = root.FindXPath("//table")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = root.FindXPath("//*[")
	assert.Error(t, err)
}

func TestStaticPage_AnchorClickNavigates(t *testing.T) {
	p := NewStaticPage(map[string]string{
		"https://example.com/company":        listPage,
		"https://example.com/reviews?page=1": `<p>reviews</p>`,
	})
	require.NoError(t, p.Navigate(context.Background(), "https://example.com/company"))

	link, err := p.FindXPath("//*[@id='EmpLinksWrapper']/div//a[2]")
	require.NoError(t, err)
	require.NoError(t, link.Click())

	assert.Equal(t, "https://example.com/reviews?page=1", p.URL())
	assert.Equal(t, []string{"https://example.com/company", "https://example.com/reviews?page=1"}, p.Navigations)
	assert.Equal(t, []string{"Reviews"}, p.Clicks)
}

func TestStaticPage_SubmitPostsForm(t *testing.T) {
	p := NewStaticPage(map[string]string{
		"https://example.com/login": `<form><input name="username"><input name="password" type="password"><button type="submit">Sign In</button></form>`,
		"https://example.com/home":  `<div class="profile">me</div>`,
	})
	var got url.Values
	p.OnSubmit = func(current string, form url.Values) string {
		got = form
		return "https://example.com/home"
	}
	require.NoError(t, p.Navigate(context.Background(), "https://example.com/login"))

	user, err := p.Find("input[name=username]")
	require.NoError(t, err)
	require.NoError(t, user.Input("me@example.com"))
	pass, err := p.Find("input[name=password]")
	require.NoError(t, err)
	require.NoError(t, pass.Input("hunter2"))

	btn, err := p.FindXPath(`//button[@type="submit"]`)
	require.NoError(t, err)
	require.NoError(t, btn.Click())

	assert.Equal(t, "me@example.com", got.Get("username"))
	assert.Equal(t, "hunter2", got.Get("password"))
	assert.Equal(t, "https://example.com/home", p.URL())
}

func TestStaticPage_NavigateUnknownURL(t *testing.T) {
	p := NewStaticPage(map[string]string{})
	assert.Error(t, p.Navigate(context.Background(), "https://example.com/nowhere"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Navigate(ctx, "https://example.com/nowhere"), context.Canceled)
}
