package fetcher

import (
	"context"

	"review-scraper/dom"
)

// Fetcher owns the browser session. One session is shared by every target
// of a run so the sign-in happens once.
type Fetcher interface {
	// NewPage opens a tab in the session
	NewPage(ctx context.Context) (dom.Page, error)
	// Close shuts the browser down
	Close() error
}
