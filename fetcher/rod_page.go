package fetcher

import (
	"context"
	"fmt"
	"time"

	"review-scraper/dom"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// rodPage adapts a live rod tab to dom.Page
type rodPage struct {
	page        *rod.Page
	loadTimeout time.Duration
	logger      *zap.Logger
}

func (rp *rodPage) Navigate(ctx context.Context, url string) error {
	if err := rp.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	return nil
}

// Settle waits for the load event, then for the DOM to stop changing
func (rp *rodPage) Settle(ctx context.Context) error {
	page := rp.page.Context(ctx)
	if err := withTimeout(page, rp.loadTimeout, (*rod.Page).WaitLoad); err != nil {
		return fmt.Errorf("failed waiting for page load: %w", err)
	}
	err := withTimeout(page, rp.loadTimeout, func(p *rod.Page) error {
		return p.WaitStable(500 * time.Millisecond)
	})
	if err != nil {
		// Pages with animated widgets never fully stabilize; the content is usually there
		rp.logger.Warn("page did not stabilize within timeout, continuing anyway", zap.Error(err))
	}
	return ctx.Err()
}

// timeoutClone is the part of *rod.Page that bounds chained operations
type timeoutClone[T any] interface {
	Timeout(d time.Duration) T
	CancelTimeout() T
}

// withTimeout runs fn on a clone of page bounded by d and releases the
// clone's timer once fn returns
func withTimeout[T timeoutClone[T]](page T, d time.Duration, fn func(T) error) error {
	p := page.Timeout(d)
	defer p.CancelTimeout()
	return fn(p)
}

func (rp *rodPage) URL() string {
	info, err := rp.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (rp *rodPage) HTML() (string, error) {
	html, err := rp.page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

func (rp *rodPage) root() (*rodElement, error) {
	has, el, err := rp.page.Has("html")
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: html", dom.ErrNotFound)
	}
	return &rodElement{el: el}, nil
}

func (rp *rodPage) Find(selector string) (dom.Element, error) {
	has, el, err := rp.page.Has(selector)
	return found(has, el, err, selector)
}

func (rp *rodPage) FindAll(selector string) ([]dom.Element, error) {
	els, err := rp.page.Elements(selector)
	return wrapAll(els, err)
}

func (rp *rodPage) FindXPath(expr string) (dom.Element, error) {
	has, el, err := rp.page.HasX(expr)
	return found(has, el, err, expr)
}

func (rp *rodPage) Text() (string, error) {
	el, err := rp.root()
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (rp *rodPage) Attribute(name string) (string, bool, error) {
	el, err := rp.root()
	if err != nil {
		return "", false, err
	}
	return el.Attribute(name)
}

func (rp *rodPage) Input(text string) error {
	return fmt.Errorf("cannot type into the document root")
}

func (rp *rodPage) Click() error {
	el, err := rp.root()
	if err != nil {
		return err
	}
	return el.Click()
}

// rodElement adapts a rod element to dom.Element
type rodElement struct {
	el *rod.Element
}

func found(has bool, el *rod.Element, err error, selector string) (dom.Element, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", dom.ErrNotFound, selector)
	}
	return &rodElement{el: el}, nil
}

func wrapAll(els rod.Elements, err error) ([]dom.Element, error) {
	if err != nil {
		return nil, err
	}
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (re *rodElement) Find(selector string) (dom.Element, error) {
	has, el, err := re.el.Has(selector)
	return found(has, el, err, selector)
}

func (re *rodElement) FindAll(selector string) ([]dom.Element, error) {
	els, err := re.el.Elements(selector)
	return wrapAll(els, err)
}

func (re *rodElement) FindXPath(expr string) (dom.Element, error) {
	has, el, err := re.el.HasX(expr)
	return found(has, el, err, expr)
}

func (re *rodElement) Text() (string, error) {
	return re.el.Text()
}

func (re *rodElement) Attribute(name string) (string, bool, error) {
	v, err := re.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (re *rodElement) Input(text string) error {
	return re.el.Input(text)
}

// Click dispatches the click from script, which also reaches elements that
// are covered or scrolled out of view
func (re *rodElement) Click() error {
	_, err := re.el.Eval(`() => this.click()`)
	return err
}
