package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/config"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
)

var ErrNotTestOwner = errors.New("test belongs to another teacher")

// TestStore is the durable test definition record
// (see repository.TestRepository).
type TestStore interface {
	Create(ctx context.Context, t *model.Test) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]model.Test, error)
	ListActiveForStudent(ctx context.Context, studentID int64) ([]model.Test, error)
	ListActive(ctx context.Context) ([]model.Test, error)
	Update(ctx context.Context, t *model.Test) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TestService manages test definitions and the student-facing payload
// cache. Payloads are warmed into Redis when a test goes active so that a
// class starting at the same moment does not stampede PostgreSQL.
type TestService struct {
	testRepo     TestStore
	questionRepo QuestionReader
	enrollments  EnrollmentChecker
	rdb          *redis.Client
	log          zerolog.Logger
}

func NewTestService(
	testRepo TestStore,
	questionRepo QuestionReader,
	enrollments EnrollmentChecker,
	rdb *redis.Client,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		enrollments:  enrollments,
		rdb:          rdb,
		log:          log.With().Str("component", "test_service").Logger(),
	}
}

// Create stores a new, inactive test owned by the teacher.
func (s *TestService) Create(ctx context.Context, teacherID int64, req *model.CreateTestRequest) (*model.Test, error) {
	test := &model.Test{
		TeacherID:       teacherID,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.testRepo.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	s.log.Info().Str("test_id", test.ID.String()).Int64("teacher_id", teacherID).Msg("Test created")
	return test, nil
}

// Get returns a test after verifying teacher ownership.
func (s *TestService) Get(ctx context.Context, testID uuid.UUID, teacherID int64) (*model.Test, error) {
	return s.getOwned(ctx, testID, teacherID)
}

// ListByTeacher returns the teacher's own tests, newest first.
func (s *TestService) ListByTeacher(ctx context.Context, teacherID int64) ([]model.Test, error) {
	return s.testRepo.ListByTeacher(ctx, teacherID)
}

// ListActiveForStudent returns the active tests of teachers the student is
// enrolled with.
func (s *TestService) ListActiveForStudent(ctx context.Context, studentID int64) ([]model.Test, error) {
	return s.testRepo.ListActiveForStudent(ctx, studentID)
}

// Update edits a test's metadata. The cached payload is refreshed if the
// test is currently active.
func (s *TestService) Update(ctx context.Context, testID uuid.UUID, teacherID int64, req *model.UpdateTestRequest) (*model.Test, error) {
	test, err := s.getOwned(ctx, testID, teacherID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		test.Title = req.Title
	}
	if req.Description != "" {
		test.Description = req.Description
	}
	if req.DurationMinutes > 0 {
		test.DurationMinutes = req.DurationMinutes
	}
	if err := s.testRepo.Update(ctx, test); err != nil {
		return nil, fmt.Errorf("update test: %w", err)
	}

	if test.IsActive {
		s.warmCache(ctx, test)
	}
	return test, nil
}

// SetActive flips a test's availability. Activation requires at least one
// gradable question; deactivation evicts the cached payload.
func (s *TestService) SetActive(ctx context.Context, testID uuid.UUID, teacherID int64, active bool) (*model.Test, error) {
	test, err := s.getOwned(ctx, testID, teacherID)
	if err != nil {
		return nil, err
	}

	if active {
		total, count, err := s.questionRepo.SumMarksByTest(ctx, testID)
		if err != nil {
			return nil, fmt.Errorf("sum marks: %w", err)
		}
		if count == 0 || total <= 0 {
			return nil, ErrInvalidTestConfig
		}
	}

	if err := s.testRepo.SetActive(ctx, testID, active); err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}
	test.IsActive = active

	if active {
		s.warmCache(ctx, test)
	} else {
		s.evictCache(ctx, testID)
	}

	s.log.Info().Str("test_id", testID.String()).Bool("active", active).Msg("Test availability changed")
	return test, nil
}

// Delete removes a test and evicts its cached payload. Attempts already
// taken survive because their scores and totals were frozen at open time.
func (s *TestService) Delete(ctx context.Context, testID uuid.UUID, teacherID int64) error {
	if _, err := s.getOwned(ctx, testID, teacherID); err != nil {
		return err
	}
	if err := s.testRepo.Delete(ctx, testID); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	s.evictCache(ctx, testID)
	return nil
}

// GetPayloadForStudent returns the answer-stripped test payload, from Redis
// when warm and from PostgreSQL otherwise. A miss repopulates the cache.
// The payload carries the owning teacher's ID so the enrollment gate holds
// on cache hits without touching the tests table.
func (s *TestService) GetPayloadForStudent(ctx context.Context, testID uuid.UUID, studentID int64) (*model.TestPayload, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(testID.String())).Result()
		if err == nil {
			var payload model.TestPayload
			if jsonErr := json.Unmarshal([]byte(raw), &payload); jsonErr == nil && payload.TeacherID != 0 {
				if err := s.checkEnrolled(ctx, studentID, payload.TeacherID); err != nil {
					return nil, err
				}
				return &payload, nil
			}
			s.log.Warn().Str("test_id", testID.String()).Msg("Stale or corrupt cached payload, rebuilding")
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Redis payload read failed, falling back to DB")
		}
	}

	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if !test.IsActive {
		return nil, ErrTestNotActive
	}
	if err := s.checkEnrolled(ctx, studentID, test.TeacherID); err != nil {
		return nil, err
	}

	payload, err := s.buildPayload(ctx, test)
	if err != nil {
		return nil, err
	}
	s.cachePayload(ctx, payload)
	return payload, nil
}

func (s *TestService) checkEnrolled(ctx context.Context, studentID, teacherID int64) error {
	enrolled, err := s.enrollments.Exists(ctx, studentID, teacherID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}

// Duration returns a test's duration with a Redis fast path. A cache miss
// goes to PostgreSQL and repopulates the key.
func (s *TestService) Duration(ctx context.Context, testID uuid.UUID) (time.Duration, error) {
	if s.rdb != nil {
		minutes, err := s.rdb.Get(ctx, config.CacheKey.TestDurationKey(testID.String())).Int()
		if err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Redis duration read failed, falling back to DB")
		}
	}

	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, ErrTestNotFound
		}
		return 0, fmt.Errorf("get test: %w", err)
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, config.CacheKey.TestDurationKey(testID.String()), test.DurationMinutes, 24*time.Hour).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache test duration")
		}
	}
	return time.Duration(test.DurationMinutes) * time.Minute, nil
}

// PrewarmActiveTests loads every active test's payload into Redis. Called
// once at startup so a restart does not begin with a cold cache.
func (s *TestService) PrewarmActiveTests(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	tests, err := s.testRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tests: %w", err)
	}
	for i := range tests {
		s.warmCache(ctx, &tests[i])
	}
	s.log.Info().Int("count", len(tests)).Msg("Prewarmed active test payloads")
	return nil
}

func (s *TestService) getOwned(ctx context.Context, testID uuid.UUID, teacherID int64) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if test.TeacherID != teacherID {
		return nil, ErrNotTestOwner
	}
	return test, nil
}

func (s *TestService) buildPayload(ctx context.Context, test *model.Test) (*model.TestPayload, error) {
	questions, err := s.questionRepo.ListByTest(ctx, test.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	payload := &model.TestPayload{
		TestID:          test.ID,
		TeacherID:       test.TeacherID,
		Title:           test.Title,
		Description:     test.Description,
		DurationMinutes: test.DurationMinutes,
		Questions:       make([]model.QuestionForStudent, 0, len(questions)),
	}
	for _, q := range questions {
		sq := model.QuestionForStudent{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Image:        q.Image,
			Marks:        q.Marks,
			Position:     q.Position,
		}
		for _, opt := range q.Options {
			sq.Options = append(sq.Options, model.OptionForStudent{Text: opt.Text, Image: opt.Image})
		}
		payload.Questions = append(payload.Questions, sq)
	}
	return payload, nil
}

func (s *TestService) warmCache(ctx context.Context, test *model.Test) {
	if s.rdb == nil {
		return
	}
	payload, err := s.buildPayload(ctx, test)
	if err != nil {
		s.log.Warn().Err(err).Str("test_id", test.ID.String()).Msg("Failed to build payload for cache warm")
		return
	}
	s.cachePayload(ctx, payload)
	if err := s.rdb.Set(ctx, config.CacheKey.TestDurationKey(test.ID.String()), test.DurationMinutes, 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache test duration")
	}
}

func (s *TestService) cachePayload(ctx context.Context, payload *model.TestPayload) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to marshal payload for cache")
		return
	}
	key := config.CacheKey.TestPayloadKey(payload.TestID.String())
	if err := s.rdb.Set(ctx, key, raw, 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache test payload")
	}
}

func (s *TestService) evictCache(ctx context.Context, testID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	keys := []string{
		config.CacheKey.TestPayloadKey(testID.String()),
		config.CacheKey.TestDurationKey(testID.String()),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to evict test cache")
	}
}
