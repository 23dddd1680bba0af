package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeFillInBlank    QuestionType = "fill_in_blank"
)

// Option is a single multiple-choice option.
type Option struct {
	Text      string `json:"text"`
	Image     string `json:"image,omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// Question represents a single test question. CorrectAnswer is only set for
// fill_in_blank questions; Options only for multiple_choice.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	TestID        uuid.UUID    `json:"test_id"`
	TeacherID     int64        `json:"teacher_id"`
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Marks         float64      `json:"marks"`
	NegativeMarks float64      `json:"negative_marks"`
	Image         string       `json:"image,omitempty"`
	Position      int          `json:"position"`
}

// AddQuestionRequest is the payload for adding a question to a test.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	QuestionType  string   `json:"question_type" binding:"required,oneof=multiple_choice fill_in_blank"`
	Options       []Option `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer string   `json:"correct_answer" binding:"omitempty,max=500"`
	Marks         float64  `json:"marks" binding:"required,gt=0"`
	NegativeMarks float64  `json:"negative_marks" binding:"omitempty,gte=0"`
	Image         string   `json:"image" binding:"omitempty,max=500"`
	Position      int      `json:"position" binding:"min=0"`
}

// UpdateQuestionRequest is the payload for editing a question.
type UpdateQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"omitempty,min=1,max=2000"`
	Options       []Option `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer string   `json:"correct_answer" binding:"omitempty,max=500"`
	Marks         *float64 `json:"marks" binding:"omitempty,gt=0"`
	NegativeMarks *float64 `json:"negative_marks" binding:"omitempty,gte=0"`
	Image         string   `json:"image" binding:"omitempty,max=500"`
	Position      *int     `json:"position" binding:"omitempty,min=0"`
}
