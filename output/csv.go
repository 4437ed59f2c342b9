package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"review-scraper/models"
)

// CSVWriter writes one UTF-8 CSV file per target, header in schema order
type CSVWriter struct {
	Dir string // Output directory; the working directory when empty
}

// NewCSVWriter creates a writer rooted at dir
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{Dir: dir}
}

// Path returns the file a target's reviews are written to
func (w *CSVWriter) Path(job models.TargetJob) string {
	name := job.OutputName()
	if filepath.IsAbs(name) || w.Dir == "" {
		return name
	}
	return filepath.Join(w.Dir, name)
}

// Write implements Sink. An empty batch still produces a header-only file.
func (w *CSVWriter) Write(ctx context.Context, job models.TargetJob, records []models.ReviewRecord) error {
	path := w.Path(job)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(models.Schema); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return f.Close()
}
