package proctor

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration time.Duration
		now      time.Time
		want     time.Duration
	}{
		{
			name:     "full duration at start",
			duration: 30 * time.Minute,
			now:      start,
			want:     30 * time.Minute,
		},
		{
			name:     "partway through",
			duration: 30 * time.Minute,
			now:      start.Add(12 * time.Minute),
			want:     18 * time.Minute,
		},
		{
			name:     "exactly at deadline",
			duration: 30 * time.Minute,
			now:      start.Add(30 * time.Minute),
			want:     0,
		},
		{
			name:     "reconnect long after deadline",
			duration: 30 * time.Minute,
			now:      start.Add(45 * time.Minute),
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Remaining(start, tt.duration, tt.now); got != tt.want {
				t.Errorf("Remaining() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemainingIsStateless(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := start.Add(10 * time.Minute)

	// Two independent computations at the same instant agree: a reload
	// cannot reset or extend the countdown.
	first := Remaining(start, 30*time.Minute, now)
	second := Remaining(start, 30*time.Minute, now)
	if first != second {
		t.Errorf("Remaining() not deterministic: %v vs %v", first, second)
	}
	if first != 20*time.Minute {
		t.Errorf("Remaining() = %v, want 20m", first)
	}
}

func TestSubmitGuard(t *testing.T) {
	t.Run("only one caller acquires", func(t *testing.T) {
		g := NewSubmitGuard()
		const racers = 32
		var wg sync.WaitGroup
		wins := make([]bool, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				wins[i] = g.TryAcquire()
			}(i)
		}
		wg.Wait()

		count := 0
		for _, w := range wins {
			if w {
				count++
			}
		}
		if count != 1 {
			t.Errorf("acquisitions = %d, want 1", count)
		}
		if !g.Fired() {
			t.Error("Fired() = false after acquisition")
		}
	})
}

func TestTimerExpiresImmediatelyPastDeadline(t *testing.T) {
	// A session attached 45 minutes into a 30 minute test must force the
	// submit on the first evaluation, not after a tick.
	start := time.Now().Add(-45 * time.Minute)
	guard := NewSubmitGuard()

	expired := make(chan struct{})
	timer := NewTimer(start, 30*time.Minute, guard, nil, func() {
		close(expired)
	})

	done := make(chan struct{})
	go func() {
		timer.Run(context.Background())
		close(done)
	}()

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("timer did not expire for an already-passed deadline")
	}
	<-done
}

func TestTimerDoesNotExpireWhenGuardTaken(t *testing.T) {
	start := time.Now().Add(-45 * time.Minute)
	guard := NewSubmitGuard()
	guard.TryAcquire()

	called := false
	timer := NewTimer(start, 30*time.Minute, guard, nil, func() {
		called = true
	})
	timer.Run(context.Background())

	if called {
		t.Error("onExpire fired although a submit was already in flight")
	}
}

func TestTimerStopsOnContextCancel(t *testing.T) {
	start := time.Now()
	guard := NewSubmitGuard()
	timer := NewTimer(start, time.Hour, guard, nil, func() {
		t.Error("onExpire fired for a live deadline")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		timer.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not stop on context cancel")
	}
}
