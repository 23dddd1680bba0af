package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/config"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
	"github.com/testlane/testlane-backend/internal/scoring"
)

// Attempt lifecycle errors. All are terminal for the request that hit them;
// ErrAlreadySubmitted is benign and callers should present it as
// "your submission was already recorded".
var (
	ErrTestNotFound      = errors.New("test not found")
	ErrTestNotActive     = errors.New("test is not active")
	ErrNotEnrolled       = errors.New("student is not enrolled with this teacher")
	ErrInvalidTestConfig = errors.New("test has no gradable questions")
	ErrAlreadyAttempted  = errors.New("test already attempted")
	ErrNotStarted        = errors.New("test not started")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrNotSubmitted      = errors.New("attempt not submitted yet")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrNotAttemptOwner   = errors.New("attempt belongs to another student")
)

// AttemptStore is the durable attempt record. Its implementation must make
// Create atomic insert-or-fail and Finalize an all-or-nothing single-shot
// update (see repository.AttemptRepository).
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByTestAndStudent(ctx context.Context, testID uuid.UUID, studentID int64) (*model.Attempt, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	Finalize(ctx context.Context, p repository.FinalizeParams) (bool, error)
	GetSummary(ctx context.Context, attemptID uuid.UUID) (*model.AttemptSummary, error)
	ListByStudent(ctx context.Context, studentID int64) ([]model.Attempt, error)
}

// TestReader resolves test definitions; read-only to this service.
type TestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
}

// QuestionReader resolves question definitions; read-only to this service.
type QuestionReader interface {
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
	SumMarksByTest(ctx context.Context, testID uuid.UUID) (float64, int, error)
}

// EnrollmentChecker answers "may this student attempt this teacher's tests".
type EnrollmentChecker interface {
	Exists(ctx context.Context, studentID, teacherID int64) (bool, error)
}

// AttemptService orchestrates the attempt lifecycle: one open, one submit,
// then a read-only summary. Scoring happens exactly once, inside Submit.
type AttemptService struct {
	store       AttemptStore
	tests       TestReader
	questions   QuestionReader
	enrollments EnrollmentChecker
	rdb         *redis.Client
	log         zerolog.Logger
	now         func() time.Time
}

// NewAttemptService creates a new AttemptService. rdb may be nil, in which
// case the start-time fast path is skipped and every read hits PostgreSQL.
func NewAttemptService(
	store AttemptStore,
	tests TestReader,
	questions QuestionReader,
	enrollments EnrollmentChecker,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		store:       store,
		tests:       tests,
		questions:   questions,
		enrollments: enrollments,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
		now:         time.Now,
	}
}

// Open creates the attempt row for (test, student). The insert either wins
// or fails with ErrAlreadyAttempted; concurrent duplicate opens resolve to
// exactly one winner at the storage layer, never by check-then-insert.
// TotalMarks is summed from the test's current question set and frozen into
// the row so the percentage denominator stays stable even if marks are
// edited later.
func (s *AttemptService) Open(ctx context.Context, testID uuid.UUID, studentID int64) (*model.OpenAttemptResult, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if !test.IsActive {
		return nil, ErrTestNotActive
	}

	enrolled, err := s.enrollments.Exists(ctx, studentID, test.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	totalMarks, questionCount, err := s.questions.SumMarksByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("sum marks: %w", err)
	}
	if questionCount == 0 || totalMarks <= 0 {
		// Rejecting here is what keeps Submit's percentage division safe.
		return nil, ErrInvalidTestConfig
	}

	attempt := &model.Attempt{
		TestID:     testID,
		StudentID:  studentID,
		TotalMarks: totalMarks,
	}
	if err := s.store.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttempt) {
			return nil, ErrAlreadyAttempted
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.cacheStartTime(ctx, testID, studentID, attempt.StartedAt)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("test_id", testID.String()).
		Int64("student_id", studentID).
		Float64("total_marks", totalMarks).
		Msg("Attempt opened")

	return &model.OpenAttemptResult{
		AttemptID:       attempt.ID,
		StartedAt:       attempt.StartedAt,
		DurationSeconds: test.DurationMinutes * 60,
		TotalMarks:      totalMarks,
		QuestionCount:   questionCount,
	}, nil
}

// Submit grades and closes the attempt. The second of two concurrent
// submits observes ErrAlreadySubmitted and changes nothing: the guard is
// the storage-level submitted_at IS NULL condition, so a retry after a
// successful submit can never rescore.
//
// The deadline is deliberately not re-validated against the server clock:
// a late submit on a still-open attempt is accepted, and forced timeliness
// stays with the client-side timer. The server records its own elapsed time
// (submitted_at - started_at) alongside the advisory client figure.
func (s *AttemptService) Submit(ctx context.Context, testID uuid.UUID, studentID int64, req *model.SubmitAttemptRequest) (*model.SubmitResult, error) {
	attempt, err := s.store.GetByTestAndStudent(ctx, testID, studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotStarted
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.SubmittedAt != nil {
		return nil, ErrAlreadySubmitted
	}

	questions, err := s.questions.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	questionMap := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		questionMap[q.ID] = q
	}

	graded := scoring.Grade(questionMap, req.Answers)
	for _, qid := range graded.Dropped {
		// The answer is dropped, not scored as incorrect. Logged for audit
		// because the frozen total_marks may now overstate what is gradable.
		s.log.Warn().
			Str("attempt_id", attempt.ID.String()).
			Str("question_id", qid.String()).
			Msg("Submitted answer references a deleted question, dropping")
	}

	percentage := scoring.Percentage(graded.Score, attempt.TotalMarks)

	updated, err := s.store.Finalize(ctx, repository.FinalizeParams{
		AttemptID:        attempt.ID,
		Score:            graded.Score,
		Percentage:       percentage,
		TimeTakenSeconds: req.TimeTakenSeconds,
		AutoSubmitted:    req.AutoSubmitted,
		SubmittedAt:      s.now(),
		Answers:          graded.Slots,
	})
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}
	if !updated {
		// Lost the race against another submit for this attempt.
		return nil, ErrAlreadySubmitted
	}

	// The attempt is closed; the cached start time has nothing left to serve.
	s.evictStartTime(ctx, testID, studentID)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Float64("score", graded.Score).
		Float64("percentage", percentage).
		Bool("auto_submitted", req.AutoSubmitted).
		Msg("Attempt submitted")

	return &model.SubmitResult{
		Score:      graded.Score,
		TotalMarks: attempt.TotalMarks,
		Percentage: percentage,
	}, nil
}

// State returns the recoverable view of an open attempt: remaining time is
// recomputed from the authoritative start timestamp, so reloads and
// reconnects can never drift or reset the countdown.
func (s *AttemptService) State(ctx context.Context, testID uuid.UUID, studentID int64) (*model.AttemptState, error) {
	attempt, err := s.store.GetByTestAndStudent(ctx, testID, studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotStarted
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	remaining := time.Duration(test.DurationMinutes)*time.Minute - s.now().Sub(attempt.StartedAt)
	if remaining < 0 {
		remaining = 0
	}

	return &model.AttemptState{
		AttemptID:        attempt.ID,
		StartedAt:        attempt.StartedAt,
		RemainingSeconds: remaining.Seconds(),
		Submitted:        attempt.SubmittedAt != nil,
	}, nil
}

// Summary returns the frozen post-submission record. It is only available
// once submitted_at is set: exposing pre-submission state here would leak
// answers through a second channel.
func (s *AttemptService) Summary(ctx context.Context, attemptID uuid.UUID, studentID int64) (*model.AttemptSummary, error) {
	attempt, err := s.store.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotAttemptOwner
	}
	if attempt.SubmittedAt == nil {
		return nil, ErrNotSubmitted
	}
	return s.store.GetSummary(ctx, attemptID)
}

// ListByStudent returns a student's own attempts for their dashboard.
func (s *AttemptService) ListByStudent(ctx context.Context, studentID int64) ([]model.Attempt, error) {
	return s.store.ListByStudent(ctx, studentID)
}

// StartTime returns the attempt's start timestamp with a Redis fast path.
// On a cache miss the value is fetched from the store and written back so
// the next read is cheap.
func (s *AttemptService) StartTime(ctx context.Context, testID uuid.UUID, studentID int64) (time.Time, error) {
	if s.rdb != nil {
		key := config.CacheKey.AttemptStartKey(testID.String(), studentID)
		val, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			unix, parseErr := strconv.ParseInt(val, 10, 64)
			if parseErr == nil {
				return time.Unix(unix, 0), nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Redis start time read failed, falling back to DB")
		}
	}

	attempt, err := s.store.GetByTestAndStudent(ctx, testID, studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return time.Time{}, ErrNotStarted
		}
		return time.Time{}, fmt.Errorf("get attempt: %w", err)
	}

	// Self-heal the cache so the next request is fast.
	s.cacheStartTime(ctx, testID, studentID, attempt.StartedAt)
	return attempt.StartedAt, nil
}

// startKeyTTL bounds how long a start-time key may outlive its attempt.
// The normal lifetime ends earlier, at submit, via evictStartTime.
const startKeyTTL = 24 * time.Hour

func (s *AttemptService) cacheStartTime(ctx context.Context, testID uuid.UUID, studentID int64, startedAt time.Time) {
	if s.rdb == nil {
		return
	}
	key := config.CacheKey.AttemptStartKey(testID.String(), studentID)
	if err := s.rdb.Set(ctx, key, startedAt.Unix(), startKeyTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache attempt start time")
	}
}

func (s *AttemptService) evictStartTime(ctx context.Context, testID uuid.UUID, studentID int64) {
	if s.rdb == nil {
		return
	}
	key := config.CacheKey.AttemptStartKey(testID.String(), studentID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to evict attempt start time")
	}
}
