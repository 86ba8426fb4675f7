package copier

import (
	"context"
	"fmt"

	"github.com/dfirlabs/evicopy/pkg/logging"
)

// Sequential copies files one at a time in discovery order. It is the
// choice whenever the destination cannot sustain concurrent writes, the
// batch is a single file, or nothing about the hardware argues for more.
type Sequential struct{}

func (s *Sequential) Name() string { return "sequential" }

func (s *Sequential) Workers(int) int { return 1 }

func (s *Sequential) Run(ctx context.Context, ex *execution) error {
	for _, entry := range ex.entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := ex.copyFile(ctx, entry)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ex.destGone() {
				return fmt.Errorf("%w: %v", ErrDestinationUnavailable, err)
			}
			ex.recordError(entry.RelativePath, err)
			ex.logger.Error(ctx, "copy failed", err, logging.Fields{"path": entry.Path})
			continue
		}
		ex.recordFile(rec)
	}
	return nil
}
