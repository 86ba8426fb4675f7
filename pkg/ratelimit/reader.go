package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

const minBucketSize = 64 * 1024

// Limiter is a token bucket shared by every reader of a copy job, so the
// configured cap applies to the job as a whole rather than per stream.
type Limiter struct {
	bytesPerSecond int64

	mu         sync.Mutex
	tokens     int64
	bucketSize int64
	lastRefill time.Time
}

// NewLimiter creates a limiter for the given bytes/s cap. A cap of zero or
// less returns nil, which every wrapper treats as "unlimited".
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	// One second of burst, with a floor so tiny caps still transfer in
	// reasonably sized reads.
	bucketSize := bytesPerSecond
	if bucketSize < minBucketSize {
		bucketSize = minBucketSize
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		tokens:         bucketSize,
		bucketSize:     bucketSize,
		lastRefill:     time.Now(),
	}
}

// wait blocks until needed tokens are available or the context ends.
func (l *Limiter) wait(ctx context.Context, needed int64) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= needed {
			l.mu.Unlock()
			return nil
		}
		deficit := needed - l.tokens
		l.mu.Unlock()

		sleep := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if sleep < time.Millisecond {
			sleep = time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill credits tokens for elapsed time. Caller holds the lock.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)

	credit := int64(float64(elapsed) / float64(time.Second) * float64(l.bytesPerSecond))
	if credit > 0 {
		l.tokens += credit
		if l.tokens > l.bucketSize {
			l.tokens = l.bucketSize
		}
		l.lastRefill = now
	}
}

func (l *Limiter) consume(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens -= n
	if l.tokens < 0 {
		l.tokens = 0
	}
}

// Reader wraps an io.Reader with bandwidth limiting
type Reader struct {
	reader  io.Reader
	limiter *Limiter
	ctx     context.Context
}

// NewReader wraps an io.Reader with rate limiting. A nil limiter returns
// the reader unchanged.
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{
		reader:  reader,
		limiter: limiter,
		ctx:     ctx,
	}
}

// Read implements io.Reader, blocking until the token bucket permits the
// requested amount.
func (r *Reader) Read(p []byte) (int, error) {
	toRead := len(p)
	if toRead > int(r.limiter.bucketSize) {
		toRead = int(r.limiter.bucketSize)
	}

	if err := r.limiter.wait(r.ctx, int64(toRead)); err != nil {
		return 0, err
	}

	n, err := r.reader.Read(p[:toRead])
	if n > 0 {
		r.limiter.consume(int64(n))
	}
	return n, err
}

// ReadCloser wraps an io.ReadCloser with rate limiting
type ReadCloser struct {
	Reader
	closer io.Closer
}

// NewReadCloser wraps an io.ReadCloser with rate limiting. A nil limiter
// returns the original unchanged.
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return &ReadCloser{
		Reader: Reader{
			reader:  rc,
			limiter: limiter,
			ctx:     ctx,
		},
		closer: rc,
	}
}

// Close implements io.Closer
func (rc *ReadCloser) Close() error {
	return rc.closer.Close()
}
