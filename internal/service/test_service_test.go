package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/model"
)

type fakeTestStore struct {
	tests map[uuid.UUID]*model.Test
}

func newFakeTestStore(tests ...*model.Test) *fakeTestStore {
	f := &fakeTestStore{tests: make(map[uuid.UUID]*model.Test)}
	for _, t := range tests {
		f.tests[t.ID] = t
	}
	return f
}

func (f *fakeTestStore) Create(_ context.Context, t *model.Test) error {
	t.ID = uuid.New()
	f.tests[t.ID] = t
	return nil
}

func (f *fakeTestStore) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeTestStore) ListByTeacher(_ context.Context, teacherID int64) ([]model.Test, error) {
	var out []model.Test
	for _, t := range f.tests {
		if t.TeacherID == teacherID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTestStore) ListActiveForStudent(_ context.Context, _ int64) ([]model.Test, error) {
	return nil, nil
}

func (f *fakeTestStore) ListActive(_ context.Context) ([]model.Test, error) {
	var out []model.Test
	for _, t := range f.tests {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTestStore) Update(_ context.Context, t *model.Test) error {
	f.tests[t.ID] = t
	return nil
}

func (f *fakeTestStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	t, ok := f.tests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.IsActive = active
	return nil
}

func (f *fakeTestStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.tests, id)
	return nil
}

func newTestServiceFixture(enrolled bool) (*TestService, uuid.UUID) {
	testID := uuid.New()
	store := newFakeTestStore(&model.Test{
		ID:              testID,
		TeacherID:       7,
		Title:           "Algebra",
		DurationMinutes: 30,
		IsActive:        true,
	})
	questions := &fakeQuestionReader{questions: []model.Question{
		{
			ID:           uuid.New(),
			QuestionText: "2 + 2 = ?",
			QuestionType: model.QuestionTypeMultipleChoice,
			Options: []model.Option{
				{Text: "3", IsCorrect: false},
				{Text: "4", IsCorrect: true},
			},
			Marks: 2,
		},
	}}
	svc := NewTestService(store, questions, &fakeEnrollmentChecker{enrolled: enrolled}, nil, zerolog.Nop())
	return svc, testID
}

func TestGetPayloadForStudent(t *testing.T) {
	t.Run("enrolled student receives stripped payload", func(t *testing.T) {
		svc, testID := newTestServiceFixture(true)

		payload, err := svc.GetPayloadForStudent(context.Background(), testID, 42)
		if err != nil {
			t.Fatalf("GetPayloadForStudent: %v", err)
		}
		if payload.TeacherID != 7 {
			t.Errorf("teacher ID = %d, want 7", payload.TeacherID)
		}
		if len(payload.Questions) != 1 {
			t.Fatalf("question count = %d, want 1", len(payload.Questions))
		}
		if len(payload.Questions[0].Options) != 2 {
			t.Errorf("option count = %d, want 2", len(payload.Questions[0].Options))
		}
	})

	t.Run("unenrolled student is rejected", func(t *testing.T) {
		svc, testID := newTestServiceFixture(false)

		_, err := svc.GetPayloadForStudent(context.Background(), testID, 42)
		if !errors.Is(err, ErrNotEnrolled) {
			t.Fatalf("err = %v, want ErrNotEnrolled", err)
		}
	})

	t.Run("inactive test is rejected before the enrollment check", func(t *testing.T) {
		svc, testID := newTestServiceFixture(true)
		svc.testRepo.(*fakeTestStore).tests[testID].IsActive = false

		_, err := svc.GetPayloadForStudent(context.Background(), testID, 42)
		if !errors.Is(err, ErrTestNotActive) {
			t.Fatalf("err = %v, want ErrTestNotActive", err)
		}
	})

	t.Run("unknown test", func(t *testing.T) {
		svc, _ := newTestServiceFixture(true)

		_, err := svc.GetPayloadForStudent(context.Background(), uuid.New(), 42)
		if !errors.Is(err, ErrTestNotFound) {
			t.Fatalf("err = %v, want ErrTestNotFound", err)
		}
	})
}
