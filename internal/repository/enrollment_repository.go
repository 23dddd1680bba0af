package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testlane/testlane-backend/internal/model"
)

// EnrollmentRepository handles student-teacher enrollment data access.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// Create records an enrollment. Enrolling twice is a no-op.
func (r *EnrollmentRepository) Create(ctx context.Context, studentID, teacherID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO enrollments (student_id, teacher_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id, teacher_id) DO NOTHING`,
		studentID, teacherID)
	return err
}

// Exists reports whether the student is enrolled with the teacher.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, teacherID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM enrollments WHERE student_id = $1 AND teacher_id = $2
		 )`, studentID, teacherID,
	).Scan(&exists)
	return exists, err
}

// ListByStudent retrieves a student's enrollments with teacher names.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]model.Enrollment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.student_id, e.teacher_id, u.name, e.created_at
		 FROM enrollments e
		 JOIN users u ON u.id = e.teacher_id
		 WHERE e.student_id = $1
		 ORDER BY e.created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.StudentID, &e.TeacherID, &e.TeacherName, &e.CreatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}
