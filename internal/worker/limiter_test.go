package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("openai") {
			t.Fatalf("request %d throttled with limiting disabled", i)
		}
	}
}

func TestLimiter_WaitURL(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.WaitURL(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.WaitURL(ctx, "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_RateLimitPerKey(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}
	if limiter.Allow("openai") {
		t.Error("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("crosswordtracker.com") {
		t.Error("expected allow for other key")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetRate("slow.com", 0.1, 1)

	if !limiter.Allow("slow.com") {
		t.Error("first request should pass")
	}
	if limiter.Allow("slow.com") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("fast.com") {
		t.Error("other key should pass")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.WaitWithDelay(ctx, "other.com", time.Second); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestHostOf(t *testing.T) {
	host, err := HostOf("https://crosswordtracker.com/answer/house/")
	if err != nil || host != "crosswordtracker.com" {
		t.Errorf("HostOf = %q, %v", host, err)
	}
	if _, err := HostOf("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
