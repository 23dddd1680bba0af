package model

import (
	"time"

	"github.com/google/uuid"
)

// ProctorEventType enumerates recognized proctoring observations.
type ProctorEventType string

const (
	ProctorEventFocusLoss ProctorEventType = "focus_loss"
)

// ProctorEvent is one proctoring observation reported during an attempt,
// persisted for audit. Events never block the attempt lifecycle.
type ProctorEvent struct {
	ID         int64            `json:"id"`
	TestID     uuid.UUID        `json:"test_id"`
	StudentID  int64            `json:"student_id"`
	EventType  ProctorEventType `json:"event_type"`
	Payload    string           `json:"payload,omitempty"`
	RecordedAt time.Time        `json:"recorded_at"`
}
