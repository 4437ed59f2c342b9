package filter

import (
	"testing"
	"time"

	"review-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func record(t *testing.T, date string) models.ReviewRecord {
	t.Helper()
	values := make(map[string]models.Value, len(models.Schema))
	for _, name := range models.Schema {
		values[name] = models.Missing()
	}
	if date != "" {
		values[models.FieldDate] = models.OK(date)
	}
	rec, err := models.NewReviewRecord(values)
	require.NoError(t, err)
	return rec
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		maxDate  *time.Time
		minDate  *time.Time
		resume   bool
		wantKind Kind
		wantErr  bool
	}{
		{"limit alone", 25, nil, nil, false, NoBound, false},
		{"resume without bound", 25, nil, nil, true, NoBound, false},
		{"resume with max", 25, day("2020-01-01"), nil, true, MaxDate, false},
		{"resume with min", 25, nil, day("2020-01-01"), true, MinDate, false},
		{"max without resume", 25, day("2020-01-01"), nil, false, NoBound, true},
		{"min without resume", 25, nil, day("2020-01-01"), false, NoBound, true},
		{"both bounds", 25, day("2020-01-01"), day("2019-01-01"), true, NoBound, true},
		{"zero limit", 0, nil, nil, false, NoBound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPolicy(tt.limit, tt.maxDate, tt.minDate, tt.resume)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Equal(t, tt.limit, p.Limit)
		})
	}
}

func TestPolicy_DateLimitReached(t *testing.T) {
	page := []models.ReviewRecord{
		record(t, "2019-12-01"),
		record(t, ""),
		record(t, "2020-02-01"),
		record(t, "not a date"),
	}

	maxPolicy, err := NewPolicy(25, day("2020-01-01"), nil, true)
	require.NoError(t, err)
	assert.True(t, maxPolicy.DateLimitReached(page))
	assert.False(t, maxPolicy.DateLimitReached(page[:2]))

	minPolicy, err := NewPolicy(25, nil, day("2019-12-15"), true)
	require.NoError(t, err)
	assert.True(t, minPolicy.DateLimitReached(page))
	assert.False(t, minPolicy.DateLimitReached(page[2:]))

	noBound, err := NewPolicy(25, nil, nil, true)
	require.NoError(t, err)
	assert.False(t, noBound.DateLimitReached(page))
	assert.False(t, maxPolicy.DateLimitReached(nil))
}

func TestPolicy_LimitReached(t *testing.T) {
	p := Policy{Limit: 3}
	assert.False(t, p.LimitReached(2))
	assert.True(t, p.LimitReached(3))
	assert.True(t, p.LimitReached(5))
}

func TestPolicy_CheckSort(t *testing.T) {
	asc := "https://www.glassdoor.com/Reviews/Acme-Reviews-E1_P4.htm?sort.sortType=RD&sort.ascending=true"
	desc := "https://www.glassdoor.com/Reviews/Acme-Reviews-E1_P4.htm?sort.sortType=RD&sort.ascending=false"
	unsorted := "https://www.glassdoor.com/Reviews/Acme-Reviews-E1_P4.htm"

	maxPolicy, _ := NewPolicy(25, day("2020-01-01"), nil, true)
	minPolicy, _ := NewPolicy(25, nil, day("2020-01-01"), true)
	noBound, _ := NewPolicy(25, nil, nil, true)

	assert.NoError(t, maxPolicy.CheckSort(asc))
	assert.ErrorIs(t, maxPolicy.CheckSort(desc), ErrSortMismatch)
	assert.ErrorIs(t, maxPolicy.CheckSort(unsorted), ErrSortMismatch)

	assert.NoError(t, minPolicy.CheckSort(desc))
	assert.NoError(t, minPolicy.CheckSort(unsorted))
	assert.ErrorIs(t, minPolicy.CheckSort(asc), ErrSortMismatch)

	assert.NoError(t, noBound.CheckSort(asc))
	assert.NoError(t, noBound.CheckSort(desc))
}

func TestPolicy_String(t *testing.T) {
	p, _ := NewPolicy(10, day("2020-01-01"), nil, true)
	assert.Equal(t, "limit 10, max-date 2020-01-01", p.String())
	assert.Equal(t, "limit 10", Policy{Limit: 10}.String())
}
