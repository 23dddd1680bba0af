package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
)

// fakeAttemptStore mimics the storage-level guarantees the service relies
// on: Create loses on a duplicate (test, student) pair and Finalize updates
// at most once per attempt.
type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.Attempt
	byPair   map[string]uuid.UUID
	answers  map[uuid.UUID][]model.AnswerSlot
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts: make(map[uuid.UUID]*model.Attempt),
		byPair:   make(map[string]uuid.UUID),
		answers:  make(map[uuid.UUID][]model.AnswerSlot),
	}
}

func pairKey(testID uuid.UUID, studentID int64) string {
	return testID.String() + "/" + strconv.FormatInt(studentID, 10)
}

func (f *fakeAttemptStore) Create(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(a.TestID, a.StudentID)
	if _, exists := f.byPair[key]; exists {
		return repository.ErrDuplicateAttempt
	}
	a.ID = uuid.New()
	a.StartedAt = time.Now()
	cp := *a
	f.attempts[a.ID] = &cp
	f.byPair[key] = a.ID
	return nil
}

func (f *fakeAttemptStore) GetByTestAndStudent(_ context.Context, testID uuid.UUID, studentID int64) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byPair[pairKey(testID, studentID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *f.attempts[id]
	return &cp, nil
}

func (f *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) Finalize(_ context.Context, p repository.FinalizeParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[p.AttemptID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if a.SubmittedAt != nil {
		return false, nil
	}
	submittedAt := p.SubmittedAt
	a.SubmittedAt = &submittedAt
	a.Score = p.Score
	a.Percentage = p.Percentage
	a.TimeTakenSeconds = p.TimeTakenSeconds
	a.AutoSubmitted = p.AutoSubmitted
	f.answers[p.AttemptID] = p.Answers
	return true, nil
}

func (f *fakeAttemptStore) GetSummary(_ context.Context, attemptID uuid.UUID) (*model.AttemptSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	sum := &model.AttemptSummary{Attempt: *a, TestTitle: "fake"}
	if a.SubmittedAt != nil {
		sum.ElapsedSeconds = int(a.SubmittedAt.Sub(a.StartedAt).Seconds())
	}
	for _, slot := range f.answers[attemptID] {
		sum.Answers = append(sum.Answers, model.ReviewedAnswer{AnswerSlot: slot})
	}
	return sum, nil
}

func (f *fakeAttemptStore) ListByStudent(_ context.Context, studentID int64) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeTestReader struct {
	tests map[uuid.UUID]*model.Test
}

func (f *fakeTestReader) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

type fakeQuestionReader struct {
	questions []model.Question
}

func (f *fakeQuestionReader) ListByTest(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	return f.questions, nil
}

func (f *fakeQuestionReader) SumMarksByTest(_ context.Context, _ uuid.UUID) (float64, int, error) {
	var total float64
	for _, q := range f.questions {
		total += q.Marks
	}
	return total, len(f.questions), nil
}

type fakeEnrollmentChecker struct {
	enrolled bool
}

func (f *fakeEnrollmentChecker) Exists(_ context.Context, _, _ int64) (bool, error) {
	return f.enrolled, nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

type attemptFixture struct {
	svc       *AttemptService
	store     *fakeAttemptStore
	tests     *fakeTestReader
	questions *fakeQuestionReader
	testID    uuid.UUID
	mcID      uuid.UUID
	fibID     uuid.UUID
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	testID := uuid.New()
	mcID := uuid.New()
	fibID := uuid.New()

	tests := &fakeTestReader{tests: map[uuid.UUID]*model.Test{
		testID: {ID: testID, TeacherID: 1, Title: "Algebra", DurationMinutes: 30, IsActive: true},
	}}
	questions := &fakeQuestionReader{questions: []model.Question{
		{
			ID:           mcID,
			QuestionType: model.QuestionTypeMultipleChoice,
			Options: []model.Option{
				{Text: "2", IsCorrect: false},
				{Text: "4", IsCorrect: true},
			},
			Marks:         2,
			NegativeMarks: 0.5,
		},
		{
			ID:            fibID,
			QuestionType:  model.QuestionTypeFillInBlank,
			CorrectAnswer: "Paris",
			Marks:         3,
		},
	}}
	store := newFakeAttemptStore()
	svc := NewAttemptService(store, tests, questions, &fakeEnrollmentChecker{enrolled: true}, nil, zerolog.Nop())

	return &attemptFixture{
		svc:       svc,
		store:     store,
		tests:     tests,
		questions: questions,
		testID:    testID,
		mcID:      mcID,
		fibID:     fibID,
	}
}

func TestAttemptOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("returns start time, duration and frozen total marks", func(t *testing.T) {
		fx := newAttemptFixture(t)
		res, err := fx.svc.Open(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if res.DurationSeconds != 1800 {
			t.Errorf("DurationSeconds = %d, want 1800", res.DurationSeconds)
		}
		if res.TotalMarks != 5 {
			t.Errorf("TotalMarks = %v, want 5", res.TotalMarks)
		}
		if res.QuestionCount != 2 {
			t.Errorf("QuestionCount = %d, want 2", res.QuestionCount)
		}
		if res.StartedAt.IsZero() {
			t.Error("StartedAt is zero")
		}
	})

	t.Run("second open fails with already attempted", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("first Open() error = %v", err)
		}
		if _, err := fx.svc.Open(ctx, fx.testID, 42); !errors.Is(err, ErrAlreadyAttempted) {
			t.Errorf("second Open() error = %v, want ErrAlreadyAttempted", err)
		}
	})

	t.Run("inactive test is rejected", func(t *testing.T) {
		fx := newAttemptFixture(t)
		fx.tests.tests[fx.testID].IsActive = false
		if _, err := fx.svc.Open(ctx, fx.testID, 42); !errors.Is(err, ErrTestNotActive) {
			t.Errorf("Open() error = %v, want ErrTestNotActive", err)
		}
	})

	t.Run("unknown test is rejected", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, uuid.New(), 42); !errors.Is(err, ErrTestNotFound) {
			t.Errorf("Open() error = %v, want ErrTestNotFound", err)
		}
	})

	t.Run("unenrolled student is rejected", func(t *testing.T) {
		fx := newAttemptFixture(t)
		svc := NewAttemptService(fx.store, fx.tests, fx.questions, &fakeEnrollmentChecker{enrolled: false}, nil, zerolog.Nop())
		if _, err := svc.Open(ctx, fx.testID, 42); !errors.Is(err, ErrNotEnrolled) {
			t.Errorf("Open() error = %v, want ErrNotEnrolled", err)
		}
	})

	t.Run("test without gradable marks is rejected", func(t *testing.T) {
		fx := newAttemptFixture(t)
		fx.questions.questions = nil
		if _, err := fx.svc.Open(ctx, fx.testID, 42); !errors.Is(err, ErrInvalidTestConfig) {
			t.Errorf("Open() error = %v, want ErrInvalidTestConfig", err)
		}
	})

	t.Run("concurrent opens produce exactly one attempt", func(t *testing.T) {
		fx := newAttemptFixture(t)
		const racers = 16
		var wg sync.WaitGroup
		results := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = fx.svc.Open(ctx, fx.testID, 42)
			}(i)
		}
		wg.Wait()

		var wins, dups int
		for _, err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAlreadyAttempted):
				dups++
			default:
				t.Fatalf("unexpected Open() error: %v", err)
			}
		}
		if wins != 1 || dups != racers-1 {
			t.Errorf("wins = %d, duplicates = %d, want 1 and %d", wins, dups, racers-1)
		}
	})
}

func TestAttemptSubmit(t *testing.T) {
	ctx := context.Background()

	submitReq := func(fx *attemptFixture) *model.SubmitAttemptRequest {
		return &model.SubmitAttemptRequest{
			Answers: []model.SubmittedAnswer{
				{QuestionID: fx.mcID, SelectedOption: intPtr(1)},
				{QuestionID: fx.fibID, TextAnswer: strPtr("  paris ")},
			},
			TimeTakenSeconds: 900,
		}
	}

	t.Run("scores and closes an open attempt", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		res, err := fx.svc.Submit(ctx, fx.testID, 42, submitReq(fx))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if res.Score != 5 {
			t.Errorf("Score = %v, want 5", res.Score)
		}
		if res.Percentage != 100 {
			t.Errorf("Percentage = %v, want 100", res.Percentage)
		}
	})

	t.Run("submit without open fails with not started", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Submit(ctx, fx.testID, 42, submitReq(fx)); !errors.Is(err, ErrNotStarted) {
			t.Errorf("Submit() error = %v, want ErrNotStarted", err)
		}
	})

	t.Run("repeat submit fails without changing the record", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		first, err := fx.svc.Submit(ctx, fx.testID, 42, submitReq(fx))
		if err != nil {
			t.Fatalf("first Submit() error = %v", err)
		}

		retry := &model.SubmitAttemptRequest{
			Answers: []model.SubmittedAnswer{
				{QuestionID: fx.mcID, SelectedOption: intPtr(0)},
			},
			TimeTakenSeconds: 1,
		}
		if _, err := fx.svc.Submit(ctx, fx.testID, 42, retry); !errors.Is(err, ErrAlreadySubmitted) {
			t.Fatalf("retry Submit() error = %v, want ErrAlreadySubmitted", err)
		}

		stored, err := fx.store.GetByTestAndStudent(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("GetByTestAndStudent() error = %v", err)
		}
		if stored.Score != first.Score {
			t.Errorf("stored score = %v changed after rejected retry, want %v", stored.Score, first.Score)
		}
		if stored.TimeTakenSeconds != 900 {
			t.Errorf("stored time taken = %d changed after rejected retry, want 900", stored.TimeTakenSeconds)
		}
	})

	t.Run("concurrent submits change state exactly once", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		const racers = 16
		var wg sync.WaitGroup
		results := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = fx.svc.Submit(ctx, fx.testID, 42, submitReq(fx))
			}(i)
		}
		wg.Wait()

		var wins, dups int
		for _, err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAlreadySubmitted):
				dups++
			default:
				t.Fatalf("unexpected Submit() error: %v", err)
			}
		}
		if wins != 1 || dups != racers-1 {
			t.Errorf("wins = %d, duplicates = %d, want 1 and %d", wins, dups, racers-1)
		}
	})

	t.Run("percentage uses the total marks frozen at open", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		// Marks edited mid-attempt: the denominator must stay at 5.
		fx.questions.questions[0].Marks = 10

		res, err := fx.svc.Submit(ctx, fx.testID, 42, submitReq(fx))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if res.TotalMarks != 5 {
			t.Errorf("TotalMarks = %v, want frozen 5", res.TotalMarks)
		}
		if res.Score != 13 {
			t.Errorf("Score = %v, want 13", res.Score)
		}
	})

	t.Run("answers to deleted questions are dropped not penalized", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		// The fill-in-blank question disappears before submit.
		fx.questions.questions = fx.questions.questions[:1]

		res, err := fx.svc.Submit(ctx, fx.testID, 42, submitReq(fx))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if res.Score != 2 {
			t.Errorf("Score = %v, want 2", res.Score)
		}
	})

	t.Run("auto submitted flag is persisted", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		req := submitReq(fx)
		req.AutoSubmitted = true
		if _, err := fx.svc.Submit(ctx, fx.testID, 42, req); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		stored, err := fx.store.GetByTestAndStudent(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("GetByTestAndStudent() error = %v", err)
		}
		if !stored.AutoSubmitted {
			t.Error("AutoSubmitted = false, want true")
		}
	})
}

func TestAttemptState(t *testing.T) {
	ctx := context.Background()

	t.Run("remaining time is derived from the start timestamp", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		// A reconnect ten minutes in sees roughly twenty minutes left.
		stored, _ := fx.store.GetByTestAndStudent(ctx, fx.testID, 42)
		fx.svc.now = func() time.Time { return stored.StartedAt.Add(10 * time.Minute) }

		state, err := fx.svc.State(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state.RemainingSeconds != 1200 {
			t.Errorf("RemainingSeconds = %v, want 1200", state.RemainingSeconds)
		}
		if state.Submitted {
			t.Error("Submitted = true, want false")
		}
	})

	t.Run("remaining time floors at zero after the deadline", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.Open(ctx, fx.testID, 42); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		stored, _ := fx.store.GetByTestAndStudent(ctx, fx.testID, 42)
		fx.svc.now = func() time.Time { return stored.StartedAt.Add(45 * time.Minute) }

		state, err := fx.svc.State(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state.RemainingSeconds != 0 {
			t.Errorf("RemainingSeconds = %v, want 0", state.RemainingSeconds)
		}
	})

	t.Run("no attempt means not started", func(t *testing.T) {
		fx := newAttemptFixture(t)
		if _, err := fx.svc.State(ctx, fx.testID, 42); !errors.Is(err, ErrNotStarted) {
			t.Errorf("State() error = %v, want ErrNotStarted", err)
		}
	})
}

func TestAttemptSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("unsubmitted attempt has no summary", func(t *testing.T) {
		fx := newAttemptFixture(t)
		res, err := fx.svc.Open(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, err := fx.svc.Summary(ctx, res.AttemptID, 42); !errors.Is(err, ErrNotSubmitted) {
			t.Errorf("Summary() error = %v, want ErrNotSubmitted", err)
		}
	})

	t.Run("another student's attempt is off limits", func(t *testing.T) {
		fx := newAttemptFixture(t)
		res, err := fx.svc.Open(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, err := fx.svc.Summary(ctx, res.AttemptID, 99); !errors.Is(err, ErrNotAttemptOwner) {
			t.Errorf("Summary() error = %v, want ErrNotAttemptOwner", err)
		}
	})

	t.Run("submitted attempt yields the frozen record", func(t *testing.T) {
		fx := newAttemptFixture(t)
		res, err := fx.svc.Open(ctx, fx.testID, 42)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		req := &model.SubmitAttemptRequest{
			Answers: []model.SubmittedAnswer{
				{QuestionID: fx.mcID, SelectedOption: intPtr(1)},
			},
			TimeTakenSeconds: 120,
		}
		if _, err := fx.svc.Submit(ctx, fx.testID, 42, req); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		sum, err := fx.svc.Summary(ctx, res.AttemptID, 42)
		if err != nil {
			t.Fatalf("Summary() error = %v", err)
		}
		if sum.Score != 2 {
			t.Errorf("Score = %v, want 2", sum.Score)
		}
		if len(sum.Answers) != 1 {
			t.Errorf("len(Answers) = %d, want 1", len(sum.Answers))
		}
	})
}
