package proctor

import "sync"

// WarningThreshold is the number of focus losses that forces a submit.
const WarningThreshold = 3

// Monitor counts focus-loss events for one live session and forces a
// submit on the third. After forcing, or after the attempt is submitted by
// any other path, further events are counted for the audit trail but never
// trigger again.
type Monitor struct {
	mu       sync.Mutex
	warnings int
	guard    *SubmitGuard
	onForce  func()
}

// NewMonitor creates a monitor sharing the session's submit guard.
// onForce is called at most once, and only if the guard is acquired.
func NewMonitor(guard *SubmitGuard, onForce func()) *Monitor {
	return &Monitor{guard: guard, onForce: onForce}
}

// RecordFocusLoss registers one focus-loss event. It returns the running
// warning count and whether this event forced the submit.
func (m *Monitor) RecordFocusLoss() (warnings int, forced bool) {
	m.mu.Lock()
	m.warnings++
	warnings = m.warnings
	hitThreshold := m.warnings >= WarningThreshold
	m.mu.Unlock()

	if !hitThreshold {
		return warnings, false
	}
	if !m.guard.TryAcquire() {
		// Submission already in flight from another trigger.
		return warnings, false
	}
	if m.onForce != nil {
		m.onForce()
	}
	return warnings, true
}

// Warnings returns the current focus-loss count.
func (m *Monitor) Warnings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings
}
