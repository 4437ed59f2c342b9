package parser

import (
	"context"
	"fmt"

	"review-scraper/dom"
	"review-scraper/filter"
	"review-scraper/models"

	"go.uber.org/zap"
)

// Harvester extracts every review on the loaded page
type Harvester struct {
	assembler *Assembler
	policy    filter.Policy
	logger    *zap.Logger
}

// NewHarvester creates a harvester that evaluates policy's date rule per page
func NewHarvester(policy filter.Policy, logger *zap.Logger) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		assembler: NewAssembler(logger),
		policy:    policy,
		logger:    logger,
	}
}

// Harvest assembles the non-featured reviews under root in document order.
// st.Index advances for every card, featured or not. The returned flag, also
// stored in st.DateLimitReached, reports whether the page crossed the date bound.
func (h *Harvester) Harvest(ctx context.Context, root dom.Element, st *models.PageState) ([]models.ReviewRecord, bool, error) {
	h.logger.Info(fmt.Sprintf("Extracting reviews from page %d", st.Page))

	reviews, err := root.FindAll(ReviewSelector)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list reviews: %w", err)
	}
	h.logger.Info(fmt.Sprintf("Found %d reviews on page %d", len(reviews), st.Page))

	records := make([]models.ReviewRecord, 0, len(reviews))
	for _, review := range reviews {
		if err := ctx.Err(); err != nil {
			return records, false, err
		}

		if IsFeatured(review) {
			h.logger.Info("Discarding a featured review")
			st.Index++
			continue
		}

		rec, err := h.assembler.Assemble(review)
		if err != nil {
			return records, false, err
		}
		records = append(records, rec)
		st.Index++
	}

	if h.policy.DateLimitReached(records) {
		h.logger.Info("Date limit reached, ending process", zap.Stringer("policy", h.policy))
		st.DateLimitReached = true
	}
	return records, st.DateLimitReached, nil
}
