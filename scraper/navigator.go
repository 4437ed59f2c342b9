package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"review-scraper/dom"
	"review-scraper/listingurl"
	"review-scraper/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sign-in and pagination locators
const (
	DefaultLoginURL = "https://www.glassdoor.com/profile/login_input.htm"

	UsernameSelector = `input[name="username"]`
	PasswordSelector = `input[name="password"]`
	SubmitXPath      = `//button[@type="submit"]`

	ReviewsLinkXPath = `//*[@id='EmpLinksWrapper']/div//a[2]`

	PagingControlsSelector = ".pagingControls"
	CurrentPageXPath       = `//ul//li[contains(concat(' ',normalize-space(@class),' '),' current ')]` +
		`//span[contains(concat(' ',normalize-space(@class),' '),' disabled ')]`

	PaginationSelector = ".pagination__PaginationStyle__pagination"
	NextSelector       = ".pagination__PaginationStyle__next"
	NextDisabledClass  = "pagination__ArrowStyle__disabled"
)

// State is the navigator's position in the site
type State int

const (
	SignedOut State = iota
	SignedIn
	OnLandingPage
	OnListingPage
	Done
)

func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed-out"
	case SignedIn:
		return "signed-in"
	case OnLandingPage:
		return "landing-page"
	case OnListingPage:
		return "listing-page"
	case Done:
		return "done"
	}
	return "unknown"
}

// NavigatorOptions tunes sign-in detection and page pacing
type NavigatorOptions struct {
	LoginURL string
	// SignedInSelector, when set, must be present after a successful sign-in.
	// Otherwise a password field still on the page means the sign-in failed.
	SignedInSelector string
	Settle           time.Duration // Extra wait after each navigation
	PageRate         float64       // Max navigations per second; 0 disables pacing
}

// Navigator drives one browser tab through sign-in, a target's landing
// page and its review listing pages. Within a target it only moves forward.
type Navigator struct {
	page    dom.Page
	opts    NavigatorOptions
	limiter *rate.Limiter
	state   State
	logger  *zap.Logger
}

// NewNavigator creates a navigator over page, starting signed out
func NewNavigator(page dom.Page, opts NavigatorOptions, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LoginURL == "" {
		opts.LoginURL = DefaultLoginURL
	}

	limit := rate.Inf
	if opts.PageRate > 0 {
		limit = rate.Limit(opts.PageRate)
	}

	return &Navigator{
		page:    page,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		state:   SignedOut,
		logger:  logger,
	}
}

// State returns the current state
func (n *Navigator) State() State {
	return n.state
}

// Page returns the tab being driven
func (n *Navigator) Page() dom.Page {
	return n.page
}

// visit loads url and waits for it to settle
func (n *Navigator) visit(ctx context.Context, url string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := n.page.Navigate(ctx, url); err != nil {
		return err
	}
	return n.settle(ctx)
}

func (n *Navigator) settle(ctx context.Context) error {
	if err := n.page.Settle(ctx); err != nil {
		return err
	}
	if n.opts.Settle <= 0 {
		return nil
	}

	timer := time.NewTimer(n.opts.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SignIn submits the login form. Any failure is an ErrAuth.
func (n *Navigator) SignIn(ctx context.Context, username, password string) error {
	if n.state != SignedOut {
		return nil
	}
	n.logger.Info(fmt.Sprintf("Signing in to %s", username))

	if err := n.visit(ctx, n.opts.LoginURL); err != nil {
		return fmt.Errorf("%w: failed to load login page: %w", ErrAuth, err)
	}

	usernameField, err := n.page.Find(UsernameSelector)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	passwordField, err := n.page.Find(PasswordSelector)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	submit, err := n.page.FindXPath(SubmitXPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}

	if err := usernameField.Input(username); err != nil {
		return fmt.Errorf("%w: failed to type username: %w", ErrAuth, err)
	}
	if err := passwordField.Input(password); err != nil {
		return fmt.Errorf("%w: failed to type password: %w", ErrAuth, err)
	}
	if err := submit.Click(); err != nil {
		return fmt.Errorf("%w: failed to submit login form: %w", ErrAuth, err)
	}
	if err := n.settle(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}

	if !n.signedIn() {
		return fmt.Errorf("%w: login did not take effect", ErrAuth)
	}

	n.state = SignedIn
	n.logger.Info("Signed in")
	return nil
}

func (n *Navigator) signedIn() bool {
	if n.opts.SignedInSelector != "" {
		return dom.Has(n.page, n.opts.SignedInSelector)
	}
	return !dom.Has(n.page, PasswordSelector)
}

// GoToListing opens a target's review listing. By default it loads the
// landing page and follows its reviews link; with resume it loads url as
// the listing itself. A landing page without a reviews link is ErrNoReviews.
func (n *Navigator) GoToListing(ctx context.Context, url string, resume bool) error {
	if n.state == SignedOut {
		return errors.New("cannot open a listing before signing in")
	}

	if resume {
		if err := n.visit(ctx, url); err != nil {
			return fmt.Errorf("failed to open listing: %w", err)
		}
		n.state = OnListingPage
		return nil
	}

	n.logger.Info("Navigating to company reviews")
	if err := n.visit(ctx, url); err != nil {
		return fmt.Errorf("failed to open landing page: %w", err)
	}
	n.state = OnLandingPage

	link, err := n.page.FindXPath(ReviewsLinkXPath)
	if err != nil {
		n.logger.Info("No reviews to scrape. Bailing!")
		return fmt.Errorf("%w: %w", ErrNoReviews, err)
	}
	href, ok, err := link.Attribute("href")
	if err != nil || !ok || strings.TrimSpace(href) == "" {
		n.logger.Info("No reviews to scrape. Bailing!")
		return fmt.Errorf("%w: reviews link has no target", ErrNoReviews)
	}

	reviewsURL, err := listingurl.Resolve(n.page.URL(), href)
	if err != nil {
		return fmt.Errorf("failed to resolve reviews link: %w", err)
	}
	if err := n.visit(ctx, reviewsURL); err != nil {
		return fmt.Errorf("failed to open review listing: %w", err)
	}
	n.state = OnListingPage
	return nil
}

// CurrentPageNumber reads the active pagination indicator. It falls back to
// the page number in the URL, then to 1.
func (n *Navigator) CurrentPageNumber() int {
	n.logger.Info("Getting current page number")

	if controls, err := n.page.Find(PagingControlsSelector); err == nil {
		if current, err := controls.FindXPath(CurrentPageXPath); err == nil {
			if text, err := current.Text(); err == nil {
				page, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))
				if err == nil && page > 0 {
					return page
				}
			}
		}
	}

	if page, ok := listingurl.PageFromURL(n.page.URL()); ok {
		return page
	}
	n.logger.Warn("could not read current page number, assuming 1")
	return 1
}

// nextLink returns the enabled "next" anchor, if any
func (n *Navigator) nextLink() (dom.Element, bool) {
	control, err := n.page.Find(PaginationSelector)
	if err != nil {
		return nil, false
	}
	next, err := control.Find(NextSelector)
	if err != nil {
		return nil, false
	}
	a, err := next.Find("a")
	if err != nil {
		return nil, false
	}
	class, _, err := a.Attribute("class")
	if err != nil || strings.Contains(class, NextDisabledClass) {
		return nil, false
	}
	return a, true
}

// HasNextPage reports whether the pagination control offers an enabled "next"
func (n *Navigator) HasNextPage() bool {
	_, ok := n.nextLink()
	return ok
}

// Advance follows the "next" link and waits for the new page. st.Page is
// incremented only once the page has loaded.
func (n *Navigator) Advance(ctx context.Context, st *models.PageState) error {
	if n.state != OnListingPage {
		return fmt.Errorf("cannot advance from state %s", n.state)
	}

	a, ok := n.nextLink()
	if !ok {
		return errors.New("no next page")
	}
	href, ok, err := a.Attribute("href")
	if err != nil || !ok || strings.TrimSpace(href) == "" {
		return errors.New("next page link has no target")
	}
	nextURL, err := listingurl.Resolve(n.page.URL(), href)
	if err != nil {
		return err
	}

	n.logger.Info(fmt.Sprintf("Going to page %d", st.Page+1))
	if err := n.visit(ctx, nextURL); err != nil {
		return fmt.Errorf("failed to load page %d: %w", st.Page+1, err)
	}
	st.Page++
	return nil
}

// Finish ends the current target's traversal. The session stays signed in.
func (n *Navigator) Finish() {
	if n.state != SignedOut {
		n.state = Done
	}
}
