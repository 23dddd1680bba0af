package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testlane/testlane-backend/internal/model"
)

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, teacher_id, title, description, duration_minutes, is_active, created_at, updated_at`

// Create inserts a new test (inactive until explicitly activated).
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (teacher_id, title, description, duration_minutes, is_active)
		 VALUES ($1, $2, $3, $4, FALSE)
		 RETURNING id, created_at, updated_at`,
		t.TeacherID, t.Title, t.Description, t.DurationMinutes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.TeacherID, &t.Title, &t.Description, &t.DurationMinutes,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListByTeacher retrieves all tests authored by a teacher, newest first.
func (r *TestRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests
		 WHERE teacher_id = $1
		 ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTests(rows)
}

// ListActiveForStudent retrieves active tests from teachers the student is
// enrolled with.
func (r *TestRepository) ListActiveForStudent(ctx context.Context, studentID int64) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+prefixedTestColumns("t")+`
		 FROM tests t
		 JOIN enrollments e ON e.teacher_id = t.teacher_id
		 WHERE e.student_id = $1 AND t.is_active = TRUE
		 ORDER BY t.created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTests(rows)
}

// ListActive retrieves every active test, for cache prewarming at startup.
func (r *TestRepository) ListActive(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests WHERE is_active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTests(rows)
}

// Update modifies a test's mutable fields.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET title = $1, description = $2, duration_minutes = $3, updated_at = NOW()
		 WHERE id = $4`,
		t.Title, t.Description, t.DurationMinutes, t.ID)
	return err
}

// SetActive toggles the active flag.
func (r *TestRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id)
	return err
}

// Delete removes a test. Attempts cascade at the schema level.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}

func prefixedTestColumns(alias string) string {
	return alias + `.id, ` + alias + `.teacher_id, ` + alias + `.title, ` +
		alias + `.description, ` + alias + `.duration_minutes, ` +
		alias + `.is_active, ` + alias + `.created_at, ` + alias + `.updated_at`
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTests(rows pgxRows) ([]model.Test, error) {
	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.TeacherID, &t.Title, &t.Description,
			&t.DurationMinutes, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
