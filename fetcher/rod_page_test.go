package fetcher

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeTab counts timer setups and releases the way a rod page clone would
type fakeTab struct {
	timeouts  *[]time.Duration
	cancelled *int
	bounded   bool
}

func (f fakeTab) Timeout(d time.Duration) fakeTab {
	*f.timeouts = append(*f.timeouts, d)
	f.bounded = true
	return f
}

func (f fakeTab) CancelTimeout() fakeTab {
	if f.bounded {
		*f.cancelled++
	}
	f.bounded = false
	return f
}

func newFakeTab() (fakeTab, *[]time.Duration, *int) {
	var timeouts []time.Duration
	var cancelled int
	return fakeTab{timeouts: &timeouts, cancelled: &cancelled}, &timeouts, &cancelled
}

func TestWithTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"callback fails", errors.New("page load aborted")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab, timeouts, cancelled := newFakeTab()

			var sawBounded bool
			err := withTimeout(tab, 15*time.Second, func(p fakeTab) error {
				sawBounded = p.bounded
				return tt.err
			})

			assert.ErrorIs(t, err, tt.err)
			assert.True(t, sawBounded, "callback runs on the bounded clone")
			assert.Equal(t, []time.Duration{15 * time.Second}, *timeouts)
			assert.Equal(t, 1, *cancelled, "timer released after the callback")
		})
	}
}
