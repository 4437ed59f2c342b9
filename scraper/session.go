package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"review-scraper/filter"
	"review-scraper/listingurl"
	"review-scraper/models"
	"review-scraper/output"
	"review-scraper/parser"
	"review-scraper/snapshot"

	"go.uber.org/zap"
)

// SessionOptions configures how each target is opened
type SessionOptions struct {
	Username string
	Password string
	// Resume treats each target URL as an already sorted listing page
	Resume bool
	// SortAscending, when set, rewrites resume URLs to sort by date this way
	SortAscending *bool
	// Snapshots, when set, receives the HTML of every harvested page
	Snapshots *snapshot.Store
}

// Result describes one finished target
type Result struct {
	Target           models.TargetJob
	Records          []models.ReviewRecord
	StartPage        int
	EndPage          int
	Reviewed         int // Cards seen, featured included
	DateLimitReached bool
	Elapsed          time.Duration
}

// Session runs targets one after another over a single signed-in tab
type Session struct {
	nav       *Navigator
	harvester *parser.Harvester
	policy    filter.Policy
	sink      output.Sink
	opts      SessionOptions
	logger    *zap.Logger
}

// NewSession creates a session. sink may be nil, in which case records are
// only returned.
func NewSession(nav *Navigator, policy filter.Policy, sink output.Sink, opts SessionOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		nav:       nav,
		harvester: parser.NewHarvester(policy, logger),
		policy:    policy,
		sink:      sink,
		opts:      opts,
		logger:    logger,
	}
}

// SignIn implements Scraper
func (s *Session) SignIn(ctx context.Context) error {
	return s.nav.SignIn(ctx, s.opts.Username, s.opts.Password)
}

// Run implements Scraper. Pages are harvested until there is no next page,
// the record limit is met or the date bound is crossed. The limit is only
// checked between pages, so the last page may overshoot it. A failed page
// turn or a page that cannot be read ends the loop and the reviews collected
// so far are still written; a read failure is returned alongside the result.
// Schema violations and cancellation discard the result.
func (s *Session) Run(ctx context.Context, job models.TargetJob) (*Result, error) {
	start := time.Now()
	st := models.NewPageState()

	listing, err := s.startURL(job.URL)
	if err != nil {
		return nil, err
	}

	if err := s.nav.GoToListing(ctx, listing, s.opts.Resume); err != nil {
		s.nav.Finish()
		return nil, err
	}
	if s.opts.Resume {
		st.Page = s.nav.CurrentPageNumber()
		s.logger.Info(fmt.Sprintf("Starting from page %d", st.Page))
	}

	res := &Result{Target: job, StartPage: st.Page}
	defer s.nav.Finish()

	harvestErr := s.harvest(ctx, job, st, res)
	for harvestErr == nil && s.nav.HasNextPage() && !s.policy.LimitReached(len(res.Records)) && !st.DateLimitReached {
		if err := s.nav.Advance(ctx, st); err != nil {
			s.logger.Warn("failed to turn page, keeping reviews collected so far",
				zap.Int("page", st.Page), zap.Error(err))
			break
		}
		harvestErr = s.harvest(ctx, job, st, res)
	}
	if harvestErr != nil {
		if isFatalHarvest(harvestErr) {
			return nil, harvestErr
		}
		s.logger.Warn("failed to harvest page, keeping reviews collected so far",
			zap.Int("page", st.Page), zap.Error(harvestErr))
	}

	res.EndPage = st.Page
	res.Reviewed = st.Index
	res.DateLimitReached = st.DateLimitReached

	var writeErr error
	if s.sink != nil {
		s.logger.Info(fmt.Sprintf("Writing %d reviews to %s", len(res.Records), job.OutputName()))
		if err := s.sink.Write(ctx, job, res.Records); err != nil {
			writeErr = fmt.Errorf("failed to write reviews for %s: %w", job.Name, err)
		}
	}

	res.Elapsed = time.Since(start)
	s.logger.Info(fmt.Sprintf("Finished in %.1f seconds", res.Elapsed.Seconds()),
		zap.String("target", job.Name), zap.Int("reviews", len(res.Records)))
	return res, errors.Join(harvestErr, writeErr)
}

// harvest appends the loaded page's reviews to res and snapshots the page
// when a snapshot store is configured
func (s *Session) harvest(ctx context.Context, job models.TargetJob, st *models.PageState, res *Result) error {
	records, _, err := s.harvester.Harvest(ctx, s.nav.Page(), st)
	if err != nil {
		return fmt.Errorf("page %d: %w", st.Page, err)
	}
	res.Records = append(res.Records, records...)

	if s.opts.Snapshots != nil {
		s.saveSnapshot(job, st.Page)
	}
	return nil
}

func (s *Session) saveSnapshot(job models.TargetJob, page int) {
	html, err := s.nav.Page().HTML()
	if err == nil {
		_, err = s.opts.Snapshots.Save(job, page, html)
	}
	if err != nil {
		s.logger.Warn("failed to save page snapshot", zap.Int("page", page), zap.Error(err))
	}
}

// isFatalHarvest reports harvest errors that discard the target's result
// instead of writing what was collected
func isFatalHarvest(err error) bool {
	return errors.Is(err, models.ErrSchemaViolation) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// startURL applies the sort rewrite and checks the sort direction suits the
// date bound. Only resume URLs carry a sort to check.
func (s *Session) startURL(raw string) (string, error) {
	if !s.opts.Resume {
		return raw, nil
	}

	listing := raw
	if s.opts.SortAscending != nil {
		sorted, err := listingurl.WithDateSort(raw, *s.opts.SortAscending)
		if err != nil {
			return "", err
		}
		listing = sorted
	}

	if s.policy.HasDateBound() {
		s.logger.Info("Date limit specified, verifying date sorting")
		if err := s.policy.CheckSort(listing); err != nil {
			return "", err
		}
	}
	return listing, nil
}
