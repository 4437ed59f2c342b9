package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"review-scraper/filter"
	"review-scraper/models"
	"review-scraper/scraper"

	"go.uber.org/zap"
)

// Notifier receives run reports. Telegram is the production implementation.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Outcome is how one target ended
type Outcome int

const (
	Done    Outcome = iota
	Skipped         // The target had no reviews
	Failed          // Recoverable failure, the batch went on
	Aborted         // Fatal failure, the batch stopped here
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// TargetReport records one target's result
type TargetReport struct {
	Target    models.TargetJob
	Outcome   Outcome
	Reviews   int
	StartPage int
	EndPage   int
	Elapsed   time.Duration
	Err       error
}

// Summary is the batch result, targets in processing order
type Summary struct {
	Targets []TargetReport
	Elapsed time.Duration
	Err     error // Fatal error that stopped the batch
}

// Count returns how many targets ended with outcome o
func (s *Summary) Count(o Outcome) int {
	n := 0
	for _, t := range s.Targets {
		if t.Outcome == o {
			n++
		}
	}
	return n
}

// Reviews is the number of reviews collected over the batch
func (s *Summary) Reviews() int {
	n := 0
	for _, t := range s.Targets {
		n += t.Reviews
	}
	return n
}

// Message renders the summary for a notification
func (s *Summary) Message() string {
	var sb strings.Builder
	if s.Err != nil {
		sb.WriteString(fmt.Sprintf("❌ Run stopped: %v\n", s.Err))
	} else {
		sb.WriteString("✅ Run finished\n")
	}
	sb.WriteString(fmt.Sprintf("Companies: %d done, %d skipped, %d failed\n",
		s.Count(Done), s.Count(Skipped), s.Count(Failed)))
	sb.WriteString(fmt.Sprintf("Reviews: %d\n", s.Reviews()))
	sb.WriteString(fmt.Sprintf("Elapsed: %s\n", s.Elapsed.Round(time.Second)))

	if len(s.Targets) > 0 {
		sb.WriteString("\n")
	}
	for _, t := range s.Targets {
		switch t.Outcome {
		case Done:
			sb.WriteString(fmt.Sprintf("• %s: %d reviews, pages %d-%d → %s\n",
				t.Target.Name, t.Reviews, t.StartPage, t.EndPage, t.Target.OutputName()))
		case Skipped:
			sb.WriteString(fmt.Sprintf("• %s: skipped, no reviews\n", t.Target.Name))
		default:
			sb.WriteString(fmt.Sprintf("• %s: %s: %v\n", t.Target.Name, t.Outcome, t.Err))
		}
	}
	return sb.String()
}

// Scheduler runs a batch of targets strictly one after another over one
// signed-in scraper session
type Scheduler struct {
	scraper  scraper.Scraper
	notifier Notifier
	logger   *zap.Logger
}

// NewScheduler creates a scheduler. notifier may be nil.
func NewScheduler(sc scraper.Scraper, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scraper:  sc,
		notifier: notifier,
		logger:   logger,
	}
}

// RunBatch signs in once and scrapes every job in order. Targets without
// reviews are skipped and recoverable failures are recorded, both without
// stopping the batch. Sign-in failures, sort mismatches, schema violations
// and cancellation stop it and are returned.
func (s *Scheduler) RunBatch(ctx context.Context, jobs []models.TargetJob) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	if err := s.scraper.SignIn(ctx); err != nil {
		summary.Err = err
		summary.Elapsed = time.Since(start)
		s.handleBatchError(ctx, summary)
		return summary, err
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			summary.Err = err
			break
		}

		report := s.processTarget(ctx, job)
		summary.Targets = append(summary.Targets, report)
		if report.Outcome == Aborted {
			summary.Err = fmt.Errorf("company %q: %w", job.Name, report.Err)
			break
		}
	}

	summary.Elapsed = time.Since(start)
	if summary.Err != nil {
		s.handleBatchError(ctx, summary)
		return summary, summary.Err
	}

	s.logger.Sugar().Infof("Batch finished: %d done, %d skipped, %d failed, %d reviews",
		summary.Count(Done), summary.Count(Skipped), summary.Count(Failed), summary.Reviews())
	s.sendStatusUpdate(ctx, summary.Message())
	return summary, nil
}

// processTarget runs one target and classifies its outcome
func (s *Scheduler) processTarget(ctx context.Context, job models.TargetJob) TargetReport {
	log := s.logger.Sugar()
	log.Infof("Processing company %s", job.Name)

	start := time.Now()
	res, err := s.scraper.Run(ctx, job)
	report := TargetReport{Target: job, Elapsed: time.Since(start), Err: err}
	if res != nil {
		report.Reviews = len(res.Records)
		report.StartPage = res.StartPage
		report.EndPage = res.EndPage
		report.Elapsed = res.Elapsed
	}

	switch {
	case err == nil:
		report.Outcome = Done
	case errors.Is(err, scraper.ErrNoReviews):
		report.Outcome = Skipped
		log.Infof("No reviews for %s, skipping", job.Name)
	case isFatal(err):
		report.Outcome = Aborted
		log.Errorf("Stopping batch at %s: %v", job.Name, err)
	default:
		report.Outcome = Failed
		log.Errorf("Error processing company %s: %v", job.Name, err)
	}
	return report
}

func isFatal(err error) bool {
	return errors.Is(err, scraper.ErrAuth) ||
		errors.Is(err, filter.ErrSortMismatch) ||
		errors.Is(err, models.ErrSchemaViolation) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// handleBatchError logs a fatal batch error and reports what was done so far
func (s *Scheduler) handleBatchError(ctx context.Context, summary *Summary) {
	s.logger.Error("Batch stopped", zap.Error(summary.Err),
		zap.Int("completed", summary.Count(Done)), zap.Int("reviews", summary.Reviews()))
	// ctx may be the reason the batch stopped; the report still goes out
	s.sendStatusUpdate(context.WithoutCancel(ctx), summary.Message())
}

// sendStatusUpdate forwards text to the notifier, if any
func (s *Scheduler) sendStatusUpdate(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Warn("Error sending status update", zap.Error(err))
	}
}
