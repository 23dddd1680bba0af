package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testlane/testlane-backend/internal/model"
)

// ErrDuplicateEmail is returned when registering an already-used email.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user and populates its ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role, teacher_code)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.TeacherCode,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanOne(ctx,
		`SELECT id, name, email, password_hash, role, teacher_code, created_at
		 FROM users WHERE email = $1`, email)
}

// GetByID retrieves a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.scanOne(ctx,
		`SELECT id, name, email, password_hash, role, teacher_code, created_at
		 FROM users WHERE id = $1`, id)
}

// GetTeacherByCode retrieves a teacher by their enrollment code.
func (r *UserRepository) GetTeacherByCode(ctx context.Context, code string) (*model.User, error) {
	return r.scanOne(ctx,
		`SELECT id, name, email, password_hash, role, teacher_code, created_at
		 FROM users WHERE role = 'teacher' AND teacher_code = $1`, code)
}

// TeacherCodeExists reports whether a teacher code is already assigned.
func (r *UserRepository) TeacherCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE teacher_code = $1)`, code,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) scanOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.TeacherCode, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// IsNotFound reports whether an error means "no row".
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
