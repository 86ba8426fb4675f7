package copier

import (
	"context"
	"fmt"
	"sync"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/logging"
)

// Parallel copies files concurrently through a bounded worker pool. It
// assumes both sides are solid state and indifferent to interleaved
// access patterns.
type Parallel struct{}

func (p *Parallel) Name() string { return "parallel" }

func (p *Parallel) Workers(planned int) int {
	if planned < 1 {
		return 1
	}
	return planned
}

func (p *Parallel) Run(ctx context.Context, ex *execution) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, ex.threads)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var opErr error
	abort := func(err error) {
		mu.Lock()
		if opErr == nil {
			opErr = err
			cancel()
		}
		mu.Unlock()
	}

	for _, entry := range ex.entries {
		select {
		case <-ctx.Done():
			wg.Wait()
			mu.Lock()
			defer mu.Unlock()
			if opErr != nil {
				return opErr
			}
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(entry hashing.FileEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := ex.copyFile(ctx, entry)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if ex.destGone() {
					abort(fmt.Errorf("%w: %v", ErrDestinationUnavailable, err))
					return
				}
				ex.recordError(entry.RelativePath, err)
				ex.logger.Error(ctx, "copy failed", err, logging.Fields{"path": entry.Path})
				return
			}
			ex.recordFile(rec)
		}(entry)
	}

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	if opErr != nil {
		return opErr
	}
	return ctx.Err()
}
