package copier

import (
	"context"
	"errors"
	"time"
)

const (
	crossDeviceBuffers    = 4
	crossDeviceBufferSize = 10 * 1024 * 1024
	bufferAcquireTimeout  = 30 * time.Second
)

// ErrBufferPoolTimeout is returned when no transfer buffer frees up
// within the acquisition timeout, which means the writer side has been
// stuck for a long time.
var ErrBufferPoolTimeout = errors.New("timed out waiting for a transfer buffer")

// bufferPool is a fixed set of pre-allocated transfer buffers. The
// bound is what keeps a fast reader from buffering an entire evidence
// image in memory while a slow writer drains.
type bufferPool struct {
	buffers chan []byte
	timeout time.Duration
}

func newBufferPool(count, size int, timeout time.Duration) *bufferPool {
	p := &bufferPool{
		buffers: make(chan []byte, count),
		timeout: timeout,
	}
	for i := 0; i < count; i++ {
		p.buffers <- make([]byte, size)
	}
	return p
}

// acquire blocks until a buffer is free, the context ends, or the
// acquisition timeout fires.
func (p *bufferPool) acquire(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case buf := <-p.buffers:
		return buf, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrBufferPoolTimeout
	}
}

func (p *bufferPool) release(buf []byte) {
	p.buffers <- buf[:cap(buf)]
}
