package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/logging"
)

// ErrCancelled is the terminal error of a cancelled job
var ErrCancelled = errors.New("job cancelled")

// cancelGrace is how long Cancel waits for the job to acknowledge
// cancellation before logging an abnormal termination.
const cancelGrace = 5 * time.Second

// State is the lifecycle state of a job
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Func is the body of a job. It reports progress through report and
// returns the terminal value, honoring ctx for cancellation.
type Func func(ctx context.Context, report hashing.ProgressFunc) (interface{}, error)

// Handle tracks a running job. Progress observed through OnProgress is
// monotonic: the percentage never decreases and only reaches 100 when
// the job completes successfully.
type Handle struct {
	id     string
	logger logging.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	callbacks   []hashing.ProgressFunc
	lastPercent float64
	state       State
	value       interface{}
	err         error
}

// Start launches fn on its own goroutine and returns a handle to it
func Start(logger logging.Logger, fn Func) *Handle {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	h := &Handle{
		id:     id,
		logger: logger.WithFields(logging.Fields{"job_id": id}),
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateRunning,
	}

	go h.run(ctx, fn)
	return h
}

func (h *Handle) run(ctx context.Context, fn Func) {
	h.logger.Info(ctx, "job started", nil)
	value, err := fn(ctx, h.report)

	h.mu.Lock()
	switch {
	case err == nil:
		h.state = StateCompleted
		h.value = value
	case errors.Is(err, context.Canceled):
		h.state = StateCancelled
		h.err = ErrCancelled
	default:
		h.state = StateFailed
		h.err = err
	}
	state := h.state
	callbacks := append([]hashing.ProgressFunc(nil), h.callbacks...)
	if state == StateCompleted {
		h.lastPercent = 100
	}
	h.mu.Unlock()

	if state == StateCompleted {
		final := hashing.Progress{Percent: 100}
		for _, cb := range callbacks {
			cb(final)
		}
		h.logger.Info(context.Background(), "job completed", nil)
	} else {
		h.logger.Warn(context.Background(), "job terminated", logging.Fields{
			"state": string(state), "error": errString(err),
		})
	}

	close(h.done)
}

// ID returns the job's unique identifier
func (h *Handle) ID() string { return h.id }

// State returns the current lifecycle state
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// OnProgress registers a callback for progress snapshots. Callbacks
// registered after completion never fire.
func (h *Handle) OnProgress(fn hashing.ProgressFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, fn)
}

// report delivers a snapshot to every callback, enforcing monotonic
// percentages that stay below 100 until the job actually completes.
func (h *Handle) report(p hashing.Progress) {
	h.mu.Lock()
	if p.Percent < h.lastPercent {
		p.Percent = h.lastPercent
	}
	if p.Percent >= 100 {
		p.Percent = 99.9
	}
	h.lastPercent = p.Percent
	callbacks := append([]hashing.ProgressFunc(nil), h.callbacks...)
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(p)
	}
}

// Result blocks until the job reaches a terminal state or ctx ends,
// returning the job's value or its terminal error.
func (h *Handle) Result(ctx context.Context) (interface{}, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel requests cooperative cancellation and waits up to the grace
// period for the job to stop. A job that blows through the grace period
// is logged as an abnormal termination; its goroutine is not killed.
func (h *Handle) Cancel() error {
	h.cancel()

	timer := time.NewTimer(cancelGrace)
	defer timer.Stop()

	select {
	case <-h.done:
		return nil
	case <-timer.C:
		h.logger.Error(context.Background(), "job did not stop within cancellation grace period",
			ErrCancelled, logging.Fields{"grace": cancelGrace.String()})
		return ErrCancelled
	}
}

// Done returns a channel closed when the job reaches a terminal state
func (h *Handle) Done() <-chan struct{} { return h.done }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
