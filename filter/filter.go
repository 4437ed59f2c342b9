package filter

import (
	"errors"
	"fmt"
	"time"

	"review-scraper/listingurl"
	"review-scraper/models"
)

// ErrSortMismatch means a date bound was configured against a listing sorted
// in the wrong direction
var ErrSortMismatch = errors.New("listing sort order does not match date bound")

// Kind selects which stopping rule applies besides the record limit
type Kind int

const (
	NoBound Kind = iota
	MaxDate      // Stop once a page holds a review newer than Bound (ascending listing)
	MinDate      // Stop once a page holds a review older than Bound (descending listing)
)

func (k Kind) String() string {
	switch k {
	case MaxDate:
		return "max-date"
	case MinDate:
		return "min-date"
	default:
		return "no-bound"
	}
}

// Policy decides when a target's harvest loop stops
type Policy struct {
	Limit int // Record limit, checked between pages
	Kind  Kind
	Bound time.Time
}

// NewPolicy builds a policy from optional date bounds. Setting both bounds,
// or any bound outside resume mode, is rejected.
func NewPolicy(limit int, maxDate, minDate *time.Time, resume bool) (Policy, error) {
	if limit < 1 {
		return Policy{}, fmt.Errorf("limit must be at least 1, got %d", limit)
	}
	if maxDate != nil && minDate != nil {
		return Policy{}, errors.New("invalid argument combination: both min_date and max_date specified")
	}
	if !resume && (maxDate != nil || minDate != nil) {
		return Policy{}, errors.New("invalid argument combination: no starting url passed, but max/min date specified")
	}

	p := Policy{Limit: limit}
	switch {
	case maxDate != nil:
		p.Kind = MaxDate
		p.Bound = *maxDate
	case minDate != nil:
		p.Kind = MinDate
		p.Bound = *minDate
	}
	return p, nil
}

// HasDateBound reports whether a date rule is active
func (p Policy) HasDateBound() bool {
	return p.Kind != NoBound
}

// LimitReached reports whether the accumulated count stops the loop
func (p Policy) LimitReached(count int) bool {
	return count >= p.Limit
}

// DateLimitReached evaluates the date rule against one harvested page.
// Records without a parseable date are ignored.
func (p Policy) DateLimitReached(records []models.ReviewRecord) bool {
	if !p.HasDateBound() {
		return false
	}

	for _, rec := range records {
		date, ok := rec.Date()
		if !ok {
			continue
		}
		switch p.Kind {
		case MaxDate:
			if date.After(p.Bound) {
				return true
			}
		case MinDate:
			if date.Before(p.Bound) {
				return true
			}
		}
	}
	return false
}

// CheckSort verifies that the listing URL's sort direction suits the bound:
// max-date needs ascending, min-date needs descending.
func (p Policy) CheckSort(listingURL string) error {
	ascending, _ := listingurl.Ascending(listingURL)

	switch {
	case p.Kind == MinDate && ascending:
		return fmt.Errorf("%w: min_date requires reviews to be sorted DESCENDING by date", ErrSortMismatch)
	case p.Kind == MaxDate && !ascending:
		return fmt.Errorf("%w: max_date requires reviews to be sorted ASCENDING by date", ErrSortMismatch)
	}
	return nil
}

// Ascending returns the sort direction the bound requires.
// ok is false when no date rule is active.
func (p Policy) Ascending() (ascending bool, ok bool) {
	switch p.Kind {
	case MaxDate:
		return true, true
	case MinDate:
		return false, true
	}
	return false, false
}

func (p Policy) String() string {
	if !p.HasDateBound() {
		return fmt.Sprintf("limit %d", p.Limit)
	}
	return fmt.Sprintf("limit %d, %s %s", p.Limit, p.Kind, p.Bound.Format("2006-01-02"))
}
