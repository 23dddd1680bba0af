package service

import (
	"errors"
	"testing"

	"github.com/testlane/testlane-backend/internal/model"
)

func TestValidateQuestionContent(t *testing.T) {
	tests := []struct {
		name    string
		q       model.Question
		wantErr bool
	}{
		{
			name: "valid multiple choice",
			q: model.Question{
				QuestionType: model.QuestionTypeMultipleChoice,
				Options: []model.Option{
					{Text: "a"},
					{Text: "b", IsCorrect: true},
				},
			},
		},
		{
			name: "multiple choice with one option",
			q: model.Question{
				QuestionType: model.QuestionTypeMultipleChoice,
				Options:      []model.Option{{Text: "a", IsCorrect: true}},
			},
			wantErr: true,
		},
		{
			name: "multiple choice without a correct option",
			q: model.Question{
				QuestionType: model.QuestionTypeMultipleChoice,
				Options:      []model.Option{{Text: "a"}, {Text: "b"}},
			},
			wantErr: true,
		},
		{
			name: "multiple choice with two correct options",
			q: model.Question{
				QuestionType: model.QuestionTypeMultipleChoice,
				Options: []model.Option{
					{Text: "a", IsCorrect: true},
					{Text: "b", IsCorrect: true},
				},
			},
			wantErr: true,
		},
		{
			name: "valid fill in blank",
			q: model.Question{
				QuestionType:  model.QuestionTypeFillInBlank,
				CorrectAnswer: "Paris",
			},
		},
		{
			name: "fill in blank with whitespace-only answer key",
			q: model.Question{
				QuestionType:  model.QuestionTypeFillInBlank,
				CorrectAnswer: "   ",
			},
			wantErr: true,
		},
		{
			name:    "unknown question type",
			q:       model.Question{QuestionType: "essay"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuestionContent(&tt.q)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuestion) {
					t.Errorf("validateQuestionContent() error = %v, want ErrInvalidQuestion", err)
				}
				return
			}
			if err != nil {
				t.Errorf("validateQuestionContent() error = %v, want nil", err)
			}
		})
	}
}
