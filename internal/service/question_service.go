package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidQuestion  = errors.New("invalid question definition")
)

// QuestionService manages the question bank of a test. Content rules that
// the request binding cannot express live here: a multiple choice question
// needs at least two options with exactly one marked correct, a fill in
// blank question needs a non-empty answer key.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	testRepo     *repository.TestRepository
	log          zerolog.Logger
}

func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	testRepo *repository.TestRepository,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		testRepo:     testRepo,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// Add appends a question to the teacher's test.
func (s *QuestionService) Add(ctx context.Context, testID uuid.UUID, teacherID int64, req *model.AddQuestionRequest) (*model.Question, error) {
	if err := s.checkOwnership(ctx, testID, teacherID); err != nil {
		return nil, err
	}

	q := &model.Question{
		TestID:        testID,
		TeacherID:     teacherID,
		QuestionText:  req.QuestionText,
		QuestionType:  model.QuestionType(req.QuestionType),
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Marks:         req.Marks,
		NegativeMarks: req.NegativeMarks,
		Image:         req.Image,
		Position:      req.Position,
	}
	if err := validateQuestionContent(q); err != nil {
		return nil, err
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.log.Info().Str("question_id", q.ID.String()).Str("test_id", testID.String()).Msg("Question added")
	return q, nil
}

// ListByTest returns a test's questions with answer keys, for the owner.
func (s *QuestionService) ListByTest(ctx context.Context, testID uuid.UUID, teacherID int64) ([]model.Question, error) {
	if err := s.checkOwnership(ctx, testID, teacherID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByTest(ctx, testID)
}

// Update edits an existing question.
func (s *QuestionService) Update(ctx context.Context, questionID uuid.UUID, teacherID int64, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.getOwned(ctx, questionID, teacherID)
	if err != nil {
		return nil, err
	}

	if req.QuestionText != "" {
		q.QuestionText = req.QuestionText
	}
	if req.Options != nil {
		q.Options = req.Options
	}
	if req.CorrectAnswer != "" {
		q.CorrectAnswer = req.CorrectAnswer
	}
	if req.Marks != nil {
		q.Marks = *req.Marks
	}
	if req.NegativeMarks != nil {
		q.NegativeMarks = *req.NegativeMarks
	}
	if req.Image != "" {
		q.Image = req.Image
	}
	if req.Position != nil {
		q.Position = *req.Position
	}
	if err := validateQuestionContent(q); err != nil {
		return nil, err
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// Delete removes a question. Open attempts are unaffected: answers to a
// question that no longer exists are dropped at grading time, and the
// attempt's total marks were frozen when it opened.
func (s *QuestionService) Delete(ctx context.Context, questionID uuid.UUID, teacherID int64) error {
	if _, err := s.getOwned(ctx, questionID, teacherID); err != nil {
		return err
	}
	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.log.Info().Str("question_id", questionID.String()).Msg("Question deleted")
	return nil
}

func (s *QuestionService) checkOwnership(ctx context.Context, testID uuid.UUID, teacherID int64) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("get test: %w", err)
	}
	if test.TeacherID != teacherID {
		return ErrNotTestOwner
	}
	return nil
}

func (s *QuestionService) getOwned(ctx context.Context, questionID uuid.UUID, teacherID int64) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	if q.TeacherID != teacherID {
		return nil, ErrNotTestOwner
	}
	return q, nil
}

func validateQuestionContent(q *model.Question) error {
	switch q.QuestionType {
	case model.QuestionTypeMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: multiple choice needs at least two options", ErrInvalidQuestion)
		}
		correct := 0
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: exactly one option must be marked correct", ErrInvalidQuestion)
		}
	case model.QuestionTypeFillInBlank:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return fmt.Errorf("%w: fill in blank needs a non-empty answer key", ErrInvalidQuestion)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidQuestion, q.QuestionType)
	}
	return nil
}
