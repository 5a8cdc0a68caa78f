package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := limiter.Allow(ctx, "auth:u1", 5, time.Minute)
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if want := 5 - i - 1; res.Remaining != want {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, res.Remaining, want)
		}
		now = now.Add(time.Second)
	}

	res, err := limiter.Allow(ctx, "auth:u1", 5, time.Minute)
	if err != nil {
		t.Fatalf("Allow #6: %v", err)
	}
	if res.Allowed {
		t.Fatal("6th request inside the window should be throttled")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, want in (0, 60s]", res.RetryAfter)
	}
}

func TestMemoryLimiterSlides(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if res, _ := limiter.Allow(ctx, "k", 3, time.Minute); !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if res, _ := limiter.Allow(ctx, "k", 3, time.Minute); res.Allowed {
		t.Fatal("4th request should be throttled")
	}

	// After the window passes, the budget is free again.
	now = now.Add(61 * time.Second)
	if res, _ := limiter.Allow(ctx, "k", 3, time.Minute); !res.Allowed {
		t.Fatal("request after window expiry should be allowed")
	}
}

func TestMemoryLimiterKeysIndependent(t *testing.T) {
	limiter := NewMemory()
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "auth:a", 1, time.Minute); !res.Allowed {
		t.Fatal("first request for key a should be allowed")
	}
	if res, _ := limiter.Allow(ctx, "auth:a", 1, time.Minute); res.Allowed {
		t.Fatal("second request for key a should be throttled")
	}
	if res, _ := limiter.Allow(ctx, "auth:b", 1, time.Minute); !res.Allowed {
		t.Fatal("key b should have its own budget")
	}
}

func TestMemoryLimiterThrottledNotRecorded(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	limiter.Allow(ctx, "k", 1, time.Minute)
	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		limiter.Allow(ctx, "k", 1, time.Minute)
	}
	// The one recorded request ages out 60s after it was made, regardless of
	// the rejected retries in between.
	now = now.Add(51 * time.Second)
	if res, _ := limiter.Allow(ctx, "k", 1, time.Minute); !res.Allowed {
		t.Fatal("rejected retries must not extend the window")
	}
}
