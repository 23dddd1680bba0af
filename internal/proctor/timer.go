// Package proctor holds the in-session enforcement pieces: the deadline
// timer derived from the attempt's start timestamp and the focus-loss
// monitor. Both can trigger a forced submit, so they share a single-flight
// guard that lets exactly one trigger through per attempt.
package proctor

import (
	"context"
	"sync/atomic"
	"time"
)

// Remaining computes the time left on an attempt as a pure function of the
// start timestamp, the test duration and the current time. It never goes
// below zero. Because nothing here depends on when the caller last looked,
// a page reload or reconnect recomputes the same deadline instead of
// restarting the countdown.
func Remaining(startedAt time.Time, duration time.Duration, now time.Time) time.Duration {
	remaining := duration - now.Sub(startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SubmitGuard ensures the forced submit fires at most once per attempt
// regardless of which trigger wins: deadline expiry, the third focus loss,
// or the student's own submit racing in.
type SubmitGuard struct {
	fired atomic.Bool
}

func NewSubmitGuard() *SubmitGuard {
	return &SubmitGuard{}
}

// TryAcquire reports whether the caller won the right to submit. All later
// callers get false.
func (g *SubmitGuard) TryAcquire() bool {
	return g.fired.CompareAndSwap(false, true)
}

// Fired reports whether a submit has already been claimed.
func (g *SubmitGuard) Fired() bool {
	return g.fired.Load()
}

// Timer drives the countdown for one live session. It ticks once per
// second and invokes onExpire through the shared guard when the deadline
// passes. If the deadline is already behind at start, onExpire fires
// immediately, which is how a reconnect past the deadline gets its
// auto-submit.
type Timer struct {
	startedAt time.Time
	duration  time.Duration
	guard     *SubmitGuard
	now       func() time.Time
	onTick    func(remaining time.Duration)
	onExpire  func()
}

// NewTimer creates a timer for an attempt. onTick may be nil; onExpire is
// called at most once, and only if the guard is acquired.
func NewTimer(startedAt time.Time, duration time.Duration, guard *SubmitGuard, onTick func(time.Duration), onExpire func()) *Timer {
	return &Timer{
		startedAt: startedAt,
		duration:  duration,
		guard:     guard,
		now:       time.Now,
		onTick:    onTick,
		onExpire:  onExpire,
	}
}

// Run blocks until the deadline passes or ctx is cancelled. Each tick
// recomputes remaining time from the start timestamp rather than counting
// down, so a paused or delayed goroutine cannot stretch the deadline.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		remaining := Remaining(t.startedAt, t.duration, t.now())
		if remaining == 0 {
			t.expire()
			return
		}
		if t.onTick != nil {
			t.onTick(remaining)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Timer) expire() {
	if !t.guard.TryAcquire() {
		return
	}
	if t.onExpire != nil {
		t.onExpire()
	}
}
