package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"review-scraper/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run statuses
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Run represents one invocation of the scraper
type Run struct {
	ID           string
	Status       string // "in_progress", "done", "failed"
	TargetsCount int
	ReviewsCount int
	LastError    sql.NullString
}

// Target represents one scraped listing within a run
type Target struct {
	ID           string
	RunID        string
	Name         string
	URL          string
	Output       string
	ReviewsCount int
}

// CreateRun starts a new run
func (db *DB) CreateRun(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Status: StatusInProgress}
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO scrape_runs (id, status) VALUES (?, ?)
	`), run.ID, run.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun records the outcome of a run. A nil runErr marks it done.
func (db *DB) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := StatusDone
	var lastError sql.NullString
	if runErr != nil {
		status = StatusFailed
		lastError = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE scrape_runs
		SET status = ?, last_error = ?, finished_at = CURRENT_TIMESTAMP,
			targets_count = (SELECT COUNT(*) FROM scrape_targets WHERE run_id = ?),
			reviews_count = (SELECT COALESCE(SUM(reviews_count), 0) FROM scrape_targets WHERE run_id = ?)
		WHERE id = ?
	`), status, lastError, runID, runID, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT id, status, targets_count, reviews_count, last_error
		FROM scrape_runs
		WHERE id = ?
	`), runID).Scan(&run.ID, &run.Status, &run.TargetsCount, &run.ReviewsCount, &run.LastError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetTargets lists the targets of a run in insertion order
func (db *DB) GetTargets(ctx context.Context, runID string) ([]Target, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, run_id, name, url, output, reviews_count
		FROM scrape_targets
		WHERE run_id = ?
		ORDER BY created_at ASC, name ASC
	`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.ID, &t.RunID, &t.Name, &t.URL, &t.Output, &t.ReviewsCount); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SaveTarget stores a target and its reviews in one transaction. Missing
// field values are stored as NULL.
func (db *DB) SaveTarget(ctx context.Context, runID string, job models.TargetJob, records []models.ReviewRecord) (*Target, error) {
	target := &Target{
		ID:           uuid.NewString(),
		RunID:        runID,
		Name:         job.Name,
		URL:          job.URL,
		Output:       job.OutputName(),
		ReviewsCount: len(records),
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, db.rebind(`
		INSERT INTO scrape_targets (id, run_id, name, url, output, reviews_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`), target.ID, target.RunID, target.Name, target.URL, target.Output, target.ReviewsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to insert target: %w", err)
	}

	if len(records) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(models.Schema)+3), ", ")
		stmt, err := tx.PrepareContext(ctx, db.rebind(fmt.Sprintf(`
			INSERT INTO reviews (id, target_id, position, %s)
			VALUES (%s)
		`, strings.Join(models.Schema, ", "), placeholders)))
		if err != nil {
			return nil, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, rec := range records {
			args := []interface{}{uuid.NewString(), target.ID, i}
			for _, field := range models.Schema {
				args = append(args, nullable(rec.Get(field)))
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return nil, fmt.Errorf("failed to insert review %q: %w", rec.Title(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return target, nil
}

func nullable(v models.Value) sql.NullString {
	if v.IsMissing() {
		return sql.NullString{}
	}
	return sql.NullString{String: v.Text, Valid: true}
}

// GetReviews loads a target's reviews in scrape order
func (db *DB) GetReviews(ctx context.Context, targetID string) ([]models.ReviewRecord, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE target_id = ?
		ORDER BY position ASC
	`, strings.Join(models.Schema, ", "))), targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ReviewRecord
	for rows.Next() {
		cols := make([]sql.NullString, len(models.Schema))
		dest := make([]interface{}, len(cols))
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		values := make(map[string]models.Value, len(cols))
		for i, field := range models.Schema {
			if cols[i].Valid {
				values[field] = models.OK(cols[i].String)
			} else {
				values[field] = models.Missing()
			}
		}
		rec, err := models.NewReviewRecord(values)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunSink writes every target of one run to the database
type RunSink struct {
	db     *DB
	runID  string
	logger *zap.Logger
}

// Sink returns an output sink attached to runID
func (db *DB) Sink(runID string) *RunSink {
	return &RunSink{db: db, runID: runID, logger: db.logger}
}

// Write implements output.Sink
func (s *RunSink) Write(ctx context.Context, job models.TargetJob, records []models.ReviewRecord) error {
	target, err := s.db.SaveTarget(ctx, s.runID, job, records)
	if err != nil {
		return err
	}
	s.logger.Info("saved reviews to database",
		zap.String("run", s.runID), zap.String("target", target.ID), zap.Int("reviews", len(records)))
	return nil
}
