package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_NoLimit(t *testing.T) {
	l := New(0, 0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unlimited limiter should not block, took %v", elapsed)
	}
}

func TestLimiter_Paces(t *testing.T) {
	// 50 rps -> 20ms interval. Three waits past the initial token
	// should take at least ~40ms.
	l := New(50, 0)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected pacing of at least 30ms, got %v", elapsed)
	}
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := New(0.1, 0) // 10s interval

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// First wait consumes the initial token.
	_ = l.Wait(ctx)

	if err := l.Wait(ctx); err == nil {
		t.Error("expected context error from second wait")
	}
}

func TestLimiter_JitterClamped(t *testing.T) {
	// Out-of-range jitter values must not panic or block forever.
	for _, j := range []float64{-1, 2} {
		l := New(1000, j)
		if err := l.Wait(context.Background()); err != nil {
			t.Errorf("jitter %v: unexpected error %v", j, err)
		}
	}
}
