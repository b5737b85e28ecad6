package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesTokenAndRefills(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	l.Configure(1, 10, 2, now)

	if err := l.Allow(1, now); err != nil {
		t.Fatalf("first allow: %v", err)
	}
	if err := l.Allow(1, now); err != nil {
		t.Fatalf("second allow: %v", err)
	}
	if err := l.Allow(1, now); err != ErrRateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}

	later := now.Add(200 * time.Millisecond)
	if err := l.Allow(1, later); err != nil {
		t.Fatalf("after refill: %v", err)
	}
}

func TestAdaptiveMultiplierDoublesAndHalves(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	l.Configure(1, 10, 10, now)

	l.OnRateLimitHit(1, now)
	if got := l.Multiplier(1); got != 2.0 {
		t.Fatalf("expected multiplier 2.0, got %f", got)
	}

	l.OnRateLimitHit(1, now)
	if got := l.Multiplier(1); got != 4.0 {
		t.Fatalf("expected multiplier 4.0, got %f", got)
	}

	later := now.Add(2 * time.Minute)
	l.OnSuccessfulMinute(1, later)
	if got := l.Multiplier(1); got != 2.0 {
		t.Fatalf("expected multiplier to halve to 2.0, got %f", got)
	}
}

func TestMultiplierCapAndFloor(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	l.Configure(1, 10, 10, now)

	for i := 0; i < 10; i++ {
		l.OnRateLimitHit(1, now)
	}
	if got := l.Multiplier(1); got != maxMultiplier {
		t.Fatalf("expected cap at %f, got %f", maxMultiplier, got)
	}

	later := now
	for i := 0; i < 10; i++ {
		later = later.Add(2 * time.Minute)
		l.OnSuccessfulMinute(1, later)
	}
	if got := l.Multiplier(1); got != minMultiplier {
		t.Fatalf("expected floor at %f, got %f", minMultiplier, got)
	}
}

func TestAllowCancelNeverRejected(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	l.Configure(1, 0, 0, now)

	for i := 0; i < 5; i++ {
		if err := l.AllowCancel(1, now); err != nil {
			t.Fatalf("cancel should never be rate limited, got %v", err)
		}
	}
}
