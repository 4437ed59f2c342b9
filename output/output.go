// Package output persists the reviews collected for a target.
package output

import (
	"context"
	"errors"
	"fmt"

	"review-scraper/models"

	"go.uber.org/zap"
)

// Sink receives one target's reviews once its harvest loop has finished
type Sink interface {
	Write(ctx context.Context, job models.TargetJob, records []models.ReviewRecord) error
}

// MultiSink writes to several sinks. Every sink is attempted even when an
// earlier one fails; the failures are joined into the returned error.
type MultiSink struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewMultiSink combines sinks, skipping nil entries
func NewMultiSink(logger *zap.Logger, sinks ...Sink) *MultiSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MultiSink{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Write implements Sink
func (m *MultiSink) Write(ctx context.Context, job models.TargetJob, records []models.ReviewRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, job, records); err != nil {
			m.logger.Error("failed to write reviews",
				zap.String("sink", fmt.Sprintf("%T", s)),
				zap.String("target", job.Name),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks
func (m *MultiSink) Len() int {
	return len(m.sinks)
}
