package dom

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// StaticPage is an in-memory Page over pre-rendered HTML documents keyed by
// URL. Anchors navigate to their href, submit buttons post the enclosing
// form's named fields to OnSubmit. Used to replay saved snapshots and to
// drive the scraper in tests.
type StaticPage struct {
	Pages map[string]string

	// OnSubmit receives the current URL and form fields and returns the URL
	// to load next, or "" to stay on the current document.
	OnSubmit func(current string, form url.Values) string
	// OnClick runs before the default click behavior; returning true skips it.
	OnClick func(p *StaticPage, sel *goquery.Selection) bool

	Navigations []string // Every URL loaded, in order
	Clicks      []string // Trimmed text of every clicked element

	current string
	doc     *goquery.Document
}

// NewStaticPage creates a StaticPage serving the given documents
func NewStaticPage(pages map[string]string) *StaticPage {
	return &StaticPage{Pages: pages}
}

// ParseHTML returns an Element rooted at a standalone HTML fragment
func ParseHTML(html string) (Element, error) {
	p := NewStaticPage(nil)
	if err := p.load("about:blank", html); err != nil {
		return nil, err
	}
	return p, nil
}

// Navigate implements Page
func (p *StaticPage) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	html, ok := p.Pages[rawURL]
	if !ok {
		return fmt.Errorf("failed to navigate: no document for %s", rawURL)
	}
	return p.load(rawURL, html)
}

func (p *StaticPage) load(rawURL, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	p.current = rawURL
	p.doc = doc
	p.Navigations = append(p.Navigations, rawURL)
	return nil
}

// Settle implements Page. Static documents are always ready.
func (p *StaticPage) Settle(ctx context.Context) error {
	return ctx.Err()
}

// URL implements Page
func (p *StaticPage) URL() string {
	return p.current
}

// HTML implements Page
func (p *StaticPage) HTML() (string, error) {
	if p.doc == nil {
		return "", nil
	}
	return p.doc.Html()
}

// Document exposes the loaded document, for OnClick hooks that mutate it
func (p *StaticPage) Document() *goquery.Document {
	return p.doc
}

func (p *StaticPage) root() *staticElement {
	if p.doc == nil {
		return &staticElement{page: p, sel: &goquery.Selection{}}
	}
	return &staticElement{page: p, doc: p.doc, sel: p.doc.Selection}
}

func (p *StaticPage) Find(selector string) (Element, error) { return p.root().Find(selector) }

func (p *StaticPage) FindAll(selector string) ([]Element, error) { return p.root().FindAll(selector) }

func (p *StaticPage) FindXPath(expr string) (Element, error) { return p.root().FindXPath(expr) }

func (p *StaticPage) Text() (string, error) { return p.root().Text() }

func (p *StaticPage) Attribute(name string) (string, bool, error) { return p.root().Attribute(name) }

func (p *StaticPage) Input(text string) error { return p.root().Input(text) }

func (p *StaticPage) Click() error { return p.root().Click() }

type staticElement struct {
	page *StaticPage
	doc  *goquery.Document
	sel  *goquery.Selection
}

func (e *staticElement) wrap(sel *goquery.Selection) *staticElement {
	return &staticElement{page: e.page, doc: e.doc, sel: sel}
}

func (e *staticElement) Find(selector string) (Element, error) {
	found := e.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return e.wrap(found), nil
}

func (e *staticElement) FindAll(selector string) ([]Element, error) {
	var elements []Element
	e.sel.Find(selector).Each(func(i int, s *goquery.Selection) {
		elements = append(elements, e.wrap(s))
	})
	return elements, nil
}

func (e *staticElement) FindXPath(expr string) (Element, error) {
	if e.doc == nil || e.sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, expr)
	}
	node, err := htmlquery.Query(e.sel.Get(0), expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, expr)
	}
	return e.wrap(e.doc.FindNodes(node)), nil
}

func (e *staticElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *staticElement) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *staticElement) Input(text string) error {
	e.sel.SetAttr("value", text)
	return nil
}

func (e *staticElement) Click() error {
	p := e.page
	p.Clicks = append(p.Clicks, strings.TrimSpace(e.sel.Text()))

	if p.OnClick != nil && p.OnClick(p, e.sel) {
		return nil
	}

	if goquery.NodeName(e.sel) == "a" {
		href, ok := e.sel.Attr("href")
		if !ok || href == "" {
			return nil
		}
		target, err := resolve(p.current, href)
		if err != nil {
			return err
		}
		return p.Navigate(context.Background(), target)
	}

	if isSubmit(e.sel) && p.OnSubmit != nil {
		form := url.Values{}
		e.sel.Closest("form").Find("input[name], textarea[name], select[name]").Each(func(i int, s *goquery.Selection) {
			name, _ := s.Attr("name")
			form.Set(name, s.AttrOr("value", ""))
		})
		if next := p.OnSubmit(p.current, form); next != "" {
			return p.Navigate(context.Background(), next)
		}
	}
	return nil
}

func isSubmit(sel *goquery.Selection) bool {
	typ := strings.ToLower(sel.AttrOr("type", ""))
	switch goquery.NodeName(sel) {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit"
	}
	return false
}

func resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref.String(), nil
	}
	return baseURL.ResolveReference(ref).String(), nil
}
