package proctor

import (
	"sync"
	"testing"
)

func TestMonitorWarnsOnFirstTwoLosses(t *testing.T) {
	m := NewMonitor(NewSubmitGuard(), func() {
		t.Error("onForce fired before the third focus loss")
	})

	for i := 1; i <= 2; i++ {
		warnings, forced := m.RecordFocusLoss()
		if warnings != i {
			t.Errorf("warnings = %d, want %d", warnings, i)
		}
		if forced {
			t.Errorf("focus loss %d forced a submit", i)
		}
	}
}

func TestMonitorForcesOnThirdLoss(t *testing.T) {
	forced := 0
	m := NewMonitor(NewSubmitGuard(), func() { forced++ })

	m.RecordFocusLoss()
	m.RecordFocusLoss()
	warnings, didForce := m.RecordFocusLoss()

	if warnings != 3 {
		t.Errorf("warnings = %d, want 3", warnings)
	}
	if !didForce {
		t.Error("third focus loss did not force a submit")
	}
	if forced != 1 {
		t.Errorf("onForce called %d times, want 1", forced)
	}
}

func TestMonitorInertAfterForcing(t *testing.T) {
	forced := 0
	m := NewMonitor(NewSubmitGuard(), func() { forced++ })

	for i := 0; i < 6; i++ {
		m.RecordFocusLoss()
	}

	if forced != 1 {
		t.Errorf("onForce called %d times, want 1", forced)
	}
	if m.Warnings() != 6 {
		t.Errorf("Warnings() = %d, want 6 (still counted for audit)", m.Warnings())
	}
}

func TestMonitorYieldsToSubmissionInFlight(t *testing.T) {
	guard := NewSubmitGuard()
	guard.TryAcquire()

	m := NewMonitor(guard, func() {
		t.Error("onForce fired although a submit was already in flight")
	})

	m.RecordFocusLoss()
	m.RecordFocusLoss()
	if _, didForce := m.RecordFocusLoss(); didForce {
		t.Error("RecordFocusLoss reported forced while the guard was held")
	}
}

func TestMonitorConcurrentLossesForceOnce(t *testing.T) {
	forced := 0
	var forcedMu sync.Mutex
	m := NewMonitor(NewSubmitGuard(), func() {
		forcedMu.Lock()
		forced++
		forcedMu.Unlock()
	})

	const racers = 16
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordFocusLoss()
		}()
	}
	wg.Wait()

	if forced != 1 {
		t.Errorf("onForce called %d times, want 1", forced)
	}
	if m.Warnings() != racers {
		t.Errorf("Warnings() = %d, want %d", m.Warnings(), racers)
	}
}
