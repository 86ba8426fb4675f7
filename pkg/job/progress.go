package job

import (
	"sync"
	"time"

	"github.com/dfirlabs/evicopy/pkg/hashing"
)

// Throttler rate-limits progress callbacks for display consumers. The
// first snapshot and any terminal snapshot always pass through so a UI
// shows both the start and the final state.
type Throttler struct {
	interval time.Duration

	mu    sync.Mutex
	last  time.Time
	first bool
}

// NewThrottler creates a throttler emitting at most maxPerSecond
// snapshots per second.
func NewThrottler(maxPerSecond int) *Throttler {
	if maxPerSecond < 1 {
		maxPerSecond = 1
	}
	return &Throttler{
		interval: time.Second / time.Duration(maxPerSecond),
		first:    true,
	}
}

// Wrap returns a callback that forwards throttled snapshots to fn
func (t *Throttler) Wrap(fn hashing.ProgressFunc) hashing.ProgressFunc {
	return func(p hashing.Progress) {
		t.mu.Lock()
		now := time.Now()
		pass := t.first || p.Percent >= 100 || now.Sub(t.last) >= t.interval
		if pass {
			t.first = false
			t.last = now
		}
		t.mu.Unlock()

		if pass {
			fn(p)
		}
	}
}
