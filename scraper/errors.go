package scraper

import "errors"

var (
	// ErrAuth means the login form could not be found or the login did not
	// take effect. It ends the whole run.
	ErrAuth = errors.New("sign-in failed")

	// ErrNoReviews means a target exposes no reviews. The target is skipped.
	ErrNoReviews = errors.New("no reviews to scrape")
)
