package exts

import (
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, time.Minute, 2)
	limiter.NowFunc = func() time.Time { return now }

	if !limiter.Allow("1.1.1.1") || !limiter.Allow("1.1.1.1") {
		t.Fatal("expected the burst to be allowed")
	}
	if limiter.Allow("1.1.1.1") {
		t.Fatal("expected the third request to be throttled")
	}
	if !limiter.Allow("2.2.2.2") {
		t.Fatal("expected other keys to be unaffected")
	}

	now = now.Add(30 * time.Second)
	if !limiter.Allow("1.1.1.1") {
		t.Fatal("expected a token to be refilled")
	}
}

func TestRateLimiterForgetsIdleKeys(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(10, time.Minute, 5)
	limiter.NowFunc = func() time.Time { return now }

	limiter.Allow("1.1.1.1")
	now = now.Add(time.Minute)
	limiter.Allow("2.2.2.2")

	// idle past the ttl, but no request has triggered a sweep yet
	now = now.Add(4*time.Minute + time.Second)
	if len(limiter.visitors) != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", len(limiter.visitors))
	}

	now = now.Add(time.Second)
	limiter.Allow("2.2.2.2")
	if _, ok := limiter.visitors["1.1.1.1"]; ok {
		t.Fatal("expected the idle key to be pruned")
	}
	if _, ok := limiter.visitors["2.2.2.2"]; !ok {
		t.Fatal("expected the active key to survive")
	}
}
