package scraper

import (
	"context"

	"review-scraper/models"
)

// Scraper defines the contract for scraping implementations
type Scraper interface {
	// SignIn authenticates the shared browser session once per run
	SignIn(ctx context.Context) error
	// Run scrapes one target with fresh page state and persists its reviews
	Run(ctx context.Context, job models.TargetJob) (*Result, error)
}
