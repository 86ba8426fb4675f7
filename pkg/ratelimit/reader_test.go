package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	t.Run("ValidBytesPerSecond", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		if limiter == nil {
			t.Fatal("NewLimiter() returned nil for valid input")
		}
		if limiter.bytesPerSecond != 1024*1024 {
			t.Errorf("bytesPerSecond = %d, want %d", limiter.bytesPerSecond, 1024*1024)
		}
	})

	t.Run("ZeroMeansUnlimited", func(t *testing.T) {
		if limiter := NewLimiter(0); limiter != nil {
			t.Error("NewLimiter(0) should return nil")
		}
		if limiter := NewLimiter(-100); limiter != nil {
			t.Error("NewLimiter(-100) should return nil")
		}
	})

	t.Run("BucketFloor", func(t *testing.T) {
		limiter := NewLimiter(1000) // 1 KB/s
		if limiter.bucketSize != minBucketSize {
			t.Errorf("bucketSize = %d, want %d", limiter.bucketSize, minBucketSize)
		}
	})

	t.Run("BucketIsOneSecondOfBurst", func(t *testing.T) {
		limiter := NewLimiter(100 * 1024 * 1024)
		if limiter.bucketSize != 100*1024*1024 {
			t.Errorf("bucketSize = %d, want %d", limiter.bucketSize, 100*1024*1024)
		}
	})
}

func TestNewReader(t *testing.T) {
	t.Run("WithLimiter", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		base := strings.NewReader("test content")

		reader := NewReader(context.Background(), base, limiter)
		if _, ok := reader.(*Reader); !ok {
			t.Error("NewReader() should return *Reader when limiter is provided")
		}
	})

	t.Run("NilLimiterPassthrough", func(t *testing.T) {
		base := strings.NewReader("test content")
		reader := NewReader(context.Background(), base, nil)
		if reader != base {
			t.Error("NewReader() should return original reader when limiter is nil")
		}
	})
}

func TestReaderRead(t *testing.T) {
	t.Run("BasicRead", func(t *testing.T) {
		content := []byte("hello world")
		reader := NewReader(context.Background(), bytes.NewReader(content), NewLimiter(1024*1024))

		buf := make([]byte, 100)
		n, err := reader.Read(buf)
		if err != nil && err != io.EOF {
			t.Fatalf("Read() error = %v", err)
		}
		if !bytes.Equal(buf[:n], content) {
			t.Errorf("Read() content = %q, want %q", buf[:n], content)
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		// Drain the bucket so the next read has to wait, then cancel.
		limiter := NewLimiter(1000)
		limiter.tokens = 0
		limiter.lastRefill = time.Now()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		reader := NewReader(ctx, bytes.NewReader(make([]byte, 1024)), limiter)
		if _, err := reader.Read(make([]byte, 100)); err != context.Canceled {
			t.Errorf("Read() error = %v, want context.Canceled", err)
		}
	})

	t.Run("MultipleReads", func(t *testing.T) {
		content := []byte("0123456789abcdef")
		reader := NewReader(context.Background(), bytes.NewReader(content), NewLimiter(1024*1024))

		var result []byte
		buf := make([]byte, 4)
		for {
			n, err := reader.Read(buf)
			result = append(result, buf[:n]...)
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
		}
		if !bytes.Equal(result, content) {
			t.Errorf("accumulated = %q, want %q", result, content)
		}
	})
}

func TestReadCloser(t *testing.T) {
	t.Run("WithLimiter", func(t *testing.T) {
		base := io.NopCloser(strings.NewReader("test content"))
		rc := NewReadCloser(context.Background(), base, NewLimiter(1024*1024))
		if _, ok := rc.(*ReadCloser); !ok {
			t.Error("NewReadCloser() should return *ReadCloser when limiter is provided")
		}
		if err := rc.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	t.Run("NilLimiterPassthrough", func(t *testing.T) {
		base := io.NopCloser(strings.NewReader("test content"))
		if rc := NewReadCloser(context.Background(), base, nil); rc != base {
			t.Error("NewReadCloser() should return original reader when limiter is nil")
		}
	})
}

func TestTokenBucket(t *testing.T) {
	t.Run("StartsFull", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		if limiter.tokens != limiter.bucketSize {
			t.Errorf("initial tokens = %d, want %d", limiter.tokens, limiter.bucketSize)
		}
	})

	t.Run("ConsumeClampsAtZero", func(t *testing.T) {
		limiter := NewLimiter(1024)
		limiter.tokens = 100
		limiter.consume(200)
		if limiter.tokens != 0 {
			t.Errorf("tokens = %d, want 0", limiter.tokens)
		}
	})

	t.Run("RefillProportionalToElapsed", func(t *testing.T) {
		limiter := NewLimiter(1000)
		limiter.tokens = 0
		limiter.lastRefill = time.Now().Add(-100 * time.Millisecond)

		limiter.mu.Lock()
		limiter.refill()
		limiter.mu.Unlock()

		if limiter.tokens < 50 || limiter.tokens > 150 {
			t.Errorf("tokens = %d, want ~100", limiter.tokens)
		}
	})

	t.Run("RefillCappedAtBucketSize", func(t *testing.T) {
		limiter := NewLimiter(1000)
		limiter.tokens = limiter.bucketSize - 10
		limiter.lastRefill = time.Now().Add(-time.Second)

		limiter.mu.Lock()
		limiter.refill()
		limiter.mu.Unlock()

		if limiter.tokens != limiter.bucketSize {
			t.Errorf("tokens = %d, want %d", limiter.tokens, limiter.bucketSize)
		}
	})
}
