package model

import (
	"time"

	"github.com/google/uuid"
)

// Test represents a timed assessment authored by a teacher.
type Test struct {
	ID              uuid.UUID `json:"id"`
	TeacherID       int64     `json:"teacher_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Description     string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// UpdateTestRequest is the payload for updating an existing test.
type UpdateTestRequest struct {
	Title           string `json:"title" binding:"omitempty,min=3,max=255"`
	Description     string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
}

// TestPayload is the student-facing view of a test: questions included,
// answer keys stripped.
type TestPayload struct {
	TestID          uuid.UUID            `json:"test_id"`
	TeacherID       int64                `json:"teacher_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without correctness information.
type QuestionForStudent struct {
	ID           uuid.UUID          `json:"id"`
	QuestionText string             `json:"question_text"`
	QuestionType QuestionType       `json:"question_type"`
	Options      []OptionForStudent `json:"options,omitempty"`
	Image        string             `json:"image,omitempty"`
	Marks        float64            `json:"marks"`
	Position     int                `json:"position"`
}

// OptionForStudent is a multiple-choice option with is_correct withheld.
type OptionForStudent struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}
