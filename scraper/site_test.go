package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"review-scraper/dom"
)

const (
	testUsername = "jane@example.com"
	testPassword = "hunter2"

	homeURL    = "https://www.glassdoor.com/member/home/index.htm"
	landingURL = "https://www.glassdoor.com/Overview/Working-at-Acme-EI_IE1.htm"
	listingURL = "https://www.glassdoor.com/Reviews/Acme-Reviews-E1.htm"
)

const loginHTML = `<html><body>
<form action="/profile/login_input.htm">
  <input name="username" type="text">
  <input name="password" type="password">
  <button type="submit">Sign In</button>
</form>
</body></html>`

const homeHTML = `<html><body><div class="memberHeader">Welcome back</div></body></html>`

const landingHTML = `<html><body>
<div id="EmpLinksWrapper"><div>
  <a href="/Overview/Working-at-Acme-EI_IE1.htm">Overview</a>
  <a href="/Reviews/Acme-Reviews-E1.htm">Reviews</a>
  <a href="/Salary/Acme-Salaries-E1.htm">Salaries</a>
</div></div>
</body></html>`

const emptyLandingHTML = `<html><body><div id="EmpLinksWrapper"><div><a href="/Overview">Overview</a></div></div></body></html>`

// review is a minimal card for pagination tests
type review struct {
	title    string
	date     string
	featured bool
}

func reviews(n int, prefix, date string) []review {
	out := make([]review, n)
	for i := range out {
		out[i] = review{title: fmt.Sprintf("%s %d", prefix, i+1), date: date}
	}
	return out
}

// listingPage renders a review listing page. next is the href of the "next"
// arrow, "" renders it disabled; current > 0 adds the paging indicator.
func listingPage(cards []review, next string, current int) string {
	var b strings.Builder
	b.WriteString(`<html><body><ol class="empReviews">`)
	for _, c := range cards {
		b.WriteString(`<li class="empReview">`)
		if c.featured {
			b.WriteString(`<span class="featuredFlag">Featured Review</span>`)
		}
		fmt.Fprintf(&b, `<time datetime="%s">%s</time>`, c.date, c.date)
		fmt.Fprintf(&b, `<a class="summary">"%s"</a>`, c.title)
		b.WriteString(`<div class="authorInfo"><span class="authorJobTitle">Current Employee - Engineer</span></div>`)
		b.WriteString(`<span class="helpfulCount">Helpful (1)</span>`)
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ol>`)

	if current > 0 {
		fmt.Fprintf(&b, `<div class="pagingControls"><ul><li class="page"><span>%d</span></li>`+
			`<li class="page current"><span class="disabled">%d</span></li></ul></div>`, current-1, current)
	}

	b.WriteString(`<div class="pagination__PaginationStyle__pagination"><ul>`)
	if next != "" {
		fmt.Fprintf(&b, `<li class="pagination__PaginationStyle__next"><a class="pagination__ArrowStyle__nextArrow" href="%s">Next</a></li>`, next)
	} else {
		b.WriteString(`<li class="pagination__PaginationStyle__next"><a class="pagination__ArrowStyle__nextArrow pagination__ArrowStyle__disabled">Next</a></li>`)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

// newSite returns a fake site with a working login form plus extra pages
func newSite(pages map[string]string) *dom.StaticPage {
	all := map[string]string{
		DefaultLoginURL: loginHTML,
		homeURL:         homeHTML,
	}
	for k, v := range pages {
		all[k] = v
	}

	site := dom.NewStaticPage(all)
	site.OnSubmit = func(current string, form url.Values) string {
		if form.Get("username") == testUsername && form.Get("password") == testPassword {
			return homeURL
		}
		return DefaultLoginURL
	}
	return site
}
