package output

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"review-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func record(t *testing.T, title string) models.ReviewRecord {
	t.Helper()
	values := make(map[string]models.Value, len(models.Schema))
	for _, name := range models.Schema {
		values[name] = models.Missing()
	}
	values[models.FieldReviewTitle] = models.OK(title)
	values[models.FieldHelpful] = models.Defaulted("0")
	rec, err := models.NewReviewRecord(values)
	require.NoError(t, err)
	return rec
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(filepath.Join(dir, "out"))
	job := models.TargetJob{Name: "Acme, Inc.", URL: "https://example.com"}

	err := w.Write(context.Background(), job, []models.ReviewRecord{record(t, "Great"), record(t, "Ünïcode, with comma")})
	require.NoError(t, err)

	path := filepath.Join(dir, "out", "acme-inc-.csv")
	assert.Equal(t, path, w.Path(job))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Schema, rows[0])
	assert.Equal(t, "Great", rows[1][4])
	assert.Equal(t, "0", rows[1][6])
	assert.Equal(t, "", rows[1][0])
	assert.Equal(t, "Ünïcode, with comma", rows[2][4])
}

func TestCSVWriter_EmptyBatchWritesHeader(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)
	job := models.TargetJob{Name: "Acme", Output: "explicit.csv"}

	require.NoError(t, w.Write(context.Background(), job, nil))
	rows := readCSV(t, filepath.Join(dir, "explicit.csv"))
	assert.Equal(t, [][]string{models.Schema}, rows)
}

type fakeSink struct {
	err   error
	calls int
}

func (f *fakeSink) Write(ctx context.Context, job models.TargetJob, records []models.ReviewRecord) error {
	f.calls++
	return f.err
}

func TestMultiSink_AttemptsEverySink(t *testing.T) {
	failing := &fakeSink{err: errors.New("sheets unavailable")}
	ok := &fakeSink{}
	m := NewMultiSink(zap.NewNop(), failing, nil, ok)
	assert.Equal(t, 2, m.Len())

	err := m.Write(context.Background(), models.TargetJob{Name: "Acme"}, nil)
	assert.ErrorIs(t, err, failing.err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)

	failing.err = nil
	assert.NoError(t, m.Write(context.Background(), models.TargetJob{Name: "Acme"}, nil))
}
