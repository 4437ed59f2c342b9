// Package snapshot saves the HTML of harvested listing pages and re-harvests
// saved pages offline.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"review-scraper/dom"
	"review-scraper/filter"
	"review-scraper/models"
	"review-scraper/parser"

	"go.uber.org/zap"
)

// Store writes page snapshots under Dir as <output stem>_p<page>.html
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file a target's page is saved to
func (s *Store) Path(job models.TargetJob, page int) string {
	stem := strings.TrimSuffix(filepath.Base(job.OutputName()), filepath.Ext(job.OutputName()))
	return filepath.Join(s.Dir, fmt.Sprintf("%s_p%04d.html", stem, page))
}

// Save writes one page's HTML and returns its path
func (s *Store) Save(job models.TargetJob, page int, html string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	path := s.Path(job, page)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// Files lists the snapshots of one target in page order
func (s *Store) Files(job models.TargetJob) ([]string, error) {
	pattern := strings.Replace(s.Path(job, 0), "_p0000.html", "_p[0-9][0-9][0-9][0-9].html", 1)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Replayer re-harvests saved pages without a browser
type Replayer struct {
	harvester *parser.Harvester
	policy    filter.Policy
	logger    *zap.Logger
}

// NewReplayer creates a replayer that stops the way a live run under policy would
func NewReplayer(policy filter.Policy, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		harvester: parser.NewHarvester(policy, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Replay harvests the given files in order, as consecutive pages of one
// listing. Like a live run it stops after the page that meets the record
// limit or crosses the date bound. On error the records of earlier pages are
// returned with it.
func (r *Replayer) Replay(ctx context.Context, paths []string) ([]models.ReviewRecord, error) {
	st := models.NewPageState()
	var records []models.ReviewRecord

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return records, fmt.Errorf("failed to read snapshot: %w", err)
		}
		root, err := dom.ParseHTML(string(raw))
		if err != nil {
			return records, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		st.Page = i + 1
		r.logger.Debug("replaying snapshot", zap.String("file", path), zap.Int("page", st.Page))
		page, _, err := r.harvester.Harvest(ctx, root, st)
		if err != nil {
			return records, fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, page...)

		if st.DateLimitReached || r.policy.LimitReached(len(records)) {
			break
		}
	}
	return records, nil
}
