package parser

import (
	"fmt"

	"review-scraper/dom"
	"review-scraper/models"

	"go.uber.org/zap"
)

// Assembler turns one review card into a ReviewRecord
type Assembler struct {
	extractors []FieldExtractor
	logger     *zap.Logger
}

// NewAssembler creates an assembler with the default extractor set
func NewAssembler(logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		extractors: DefaultExtractors(logger),
		logger:     logger,
	}
}

// IsFeatured reports whether a card is a promoted review
func IsFeatured(review dom.Element) bool {
	return dom.Has(review, FeaturedFlagSelector)
}

// Assemble runs every extractor against the card. A single field failing
// never stops the others; the only error is a schema violation.
func (a *Assembler) Assemble(review dom.Element) (models.ReviewRecord, error) {
	node := newReviewNode(review)

	values := make(map[string]models.Value, len(a.extractors))
	for _, fx := range a.extractors {
		values[fx.Field] = a.run(fx, node)
	}

	rec, err := models.NewReviewRecord(values)
	if err != nil {
		return models.ReviewRecord{}, fmt.Errorf("failed to assemble review: %w", err)
	}

	a.logger.Info(fmt.Sprintf("Scraped data for %q (%s)", rec.Title(), rec.Get(models.FieldDate)))
	return rec, nil
}

// run isolates a single extractor; a panic inside a DOM adapter becomes Missing
func (a *Assembler) run(fx FieldExtractor, node *reviewNode) (v models.Value) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("recovered from panic while scraping field",
				zap.String("field", fx.Field), zap.Any("panic", r))
			v = models.Missing()
		}
	}()
	return fx.Extract(node)
}
