package copier

import (
	"context"
	"sync"
	"time"

	"github.com/VividCortex/ewma"

	"github.com/dfirlabs/evicopy/pkg/logging"
)

const (
	// Throughput samples are folded into the moving average once per window
	throughputWindow = time.Second
	// A sustained drop below this fraction of the observed peak is logged
	throughputDropRatio = 0.7
)

// throughputMonitor tracks rolling copy throughput with an exponentially
// weighted moving average. A sustained drop against the observed peak is
// logged as a diagnostic; it never changes the running strategy.
type throughputMonitor struct {
	logger logging.Logger

	mu          sync.Mutex
	avg         ewma.MovingAverage
	peak        float64
	windowBytes int64
	windowStart time.Time
	warned      bool
}

func newThroughputMonitor(logger logging.Logger) *throughputMonitor {
	return &throughputMonitor{
		logger:      logger,
		avg:         ewma.NewMovingAverage(),
		windowStart: time.Now(),
	}
}

// add folds copied bytes into the current window, rolling the window
// into the moving average when it closes.
func (m *throughputMonitor) add(bytes int64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowBytes += bytes
	elapsed := now.Sub(m.windowStart)
	if elapsed < throughputWindow {
		return
	}

	mbps := float64(m.windowBytes) / (1024 * 1024) / elapsed.Seconds()
	m.windowBytes = 0
	m.windowStart = now

	m.avg.Add(mbps)
	current := m.avg.Value()
	if current > m.peak {
		m.peak = current
		m.warned = false
		return
	}

	if m.peak > 0 && current < m.peak*throughputDropRatio && !m.warned {
		m.warned = true
		m.logger.Warn(context.Background(), "throughput dropped from peak", logging.Fields{
			"current_mbps": current,
			"peak_mbps":    m.peak,
		})
	}
}

// current returns the smoothed throughput in MB/s
func (m *throughputMonitor) current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avg.Value()
}
