package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
)

var ErrTeacherCodeNotFound = errors.New("no teacher with that code")

// EnrollmentService links students to teachers through the teacher's
// four-digit code. Enrollment is what gates attempt opening.
type EnrollmentService struct {
	enrollmentRepo *repository.EnrollmentRepository
	userRepo       *repository.UserRepository
	log            zerolog.Logger
}

func NewEnrollmentService(
	enrollmentRepo *repository.EnrollmentRepository,
	userRepo *repository.UserRepository,
	log zerolog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		log:            log.With().Str("component", "enrollment_service").Logger(),
	}
}

// Enroll links the student to the teacher owning the code. Enrolling twice
// with the same code is a no-op, not an error.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID int64, req *model.EnrollRequest) (*model.User, error) {
	teacher, err := s.userRepo.GetTeacherByCode(ctx, req.TeacherCode)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTeacherCodeNotFound
		}
		return nil, fmt.Errorf("get teacher by code: %w", err)
	}

	if err := s.enrollmentRepo.Create(ctx, studentID, teacher.ID); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	s.log.Info().Int64("student_id", studentID).Int64("teacher_id", teacher.ID).Msg("Student enrolled")
	return teacher, nil
}

// List returns the teachers the student is enrolled with.
func (s *EnrollmentService) List(ctx context.Context, studentID int64) ([]model.Enrollment, error) {
	return s.enrollmentRepo.ListByStudent(ctx, studentID)
}
