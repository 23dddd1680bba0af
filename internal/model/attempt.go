package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt represents a student's single engagement with one test.
// The (test_id, student_id) pair is unique: an attempt is opened at most
// once, and SubmittedAt being set means the attempt is closed for good.
type Attempt struct {
	ID               uuid.UUID  `json:"id"`
	TestID           uuid.UUID  `json:"test_id"`
	StudentID        int64      `json:"student_id"`
	StartedAt        time.Time  `json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	Score            float64    `json:"score"`
	TotalMarks       float64    `json:"total_marks"`
	Percentage       float64    `json:"percentage"`
	TimeTakenSeconds int        `json:"time_taken_seconds"`
	AutoSubmitted    bool       `json:"auto_submitted"`
}

// AnswerSlot is one graded answer persisted with a closed attempt.
// SelectedOption is set for multiple_choice, TextAnswer for fill_in_blank.
type AnswerSlot struct {
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption *int      `json:"selected_option,omitempty"`
	TextAnswer     *string   `json:"text_answer,omitempty"`
	IsCorrect      *bool     `json:"is_correct,omitempty"`
}

// SubmittedAnswer is one answer as sent by the client at submit time.
type SubmittedAnswer struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption *int      `json:"selected_option" binding:"omitempty,min=0"`
	TextAnswer     *string   `json:"text_answer" binding:"omitempty,max=2000"`
}

// SubmitAttemptRequest is the payload for closing an attempt.
// TimeTakenSeconds is client-reported and advisory; the server derives the
// authoritative elapsed time from the attempt's start timestamp.
type SubmitAttemptRequest struct {
	Answers          []SubmittedAnswer `json:"answers" binding:"dive"`
	TimeTakenSeconds int               `json:"time_taken_seconds" binding:"min=0"`
	AutoSubmitted    bool              `json:"auto_submitted"`
}

// OpenAttemptResult is returned when an attempt is opened.
type OpenAttemptResult struct {
	AttemptID       uuid.UUID `json:"attempt_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
	TotalMarks      float64   `json:"total_marks"`
	QuestionCount   int       `json:"question_count"`
}

// SubmitResult is returned when an attempt is closed.
type SubmitResult struct {
	Score      float64 `json:"score"`
	TotalMarks float64 `json:"total_marks"`
	Percentage float64 `json:"percentage"`
}

// AttemptState is the recoverable in-progress view: a reloading client
// recomputes its countdown from this instead of a local counter.
type AttemptState struct {
	AttemptID        uuid.UUID `json:"attempt_id"`
	StartedAt        time.Time `json:"started_at"`
	RemainingSeconds float64   `json:"remaining_seconds"`
	Submitted        bool      `json:"submitted"`
}

// ReviewedAnswer joins a persisted answer slot with its question content
// for post-submission review.
type ReviewedAnswer struct {
	AnswerSlot
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Marks         float64      `json:"marks"`
	NegativeMarks float64      `json:"negative_marks"`
}

// AttemptSummary is the read-only post-submission record.
// ElapsedSeconds is the server-derived duration (submitted_at - started_at);
// TimeTakenSeconds inside Attempt is the client-reported figure.
type AttemptSummary struct {
	Attempt
	TestTitle      string           `json:"test_title"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	Answers        []ReviewedAnswer `json:"answers"`
}
