package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testlane/testlane-backend/internal/model"
)

// ErrDuplicateAttempt is returned when an attempt already exists for the
// (test, student) pair. The uniqueness constraint resolves concurrent opens
// to exactly one winner.
var ErrDuplicateAttempt = errors.New("attempt already exists for this test and student")

// FinalizeParams carries everything written in the single atomic submit
// update.
type FinalizeParams struct {
	AttemptID        uuid.UUID
	Score            float64
	Percentage       float64
	TimeTakenSeconds int
	AutoSubmitted    bool
	SubmittedAt      time.Time
	Answers          []model.AnswerSlot
}

// TestResult is one row of a test's results listing.
type TestResult struct {
	AttemptID        uuid.UUID  `json:"attempt_id"`
	StudentID        int64      `json:"student_id"`
	StudentName      string     `json:"student_name"`
	StudentEmail     string     `json:"student_email"`
	Score            float64    `json:"score"`
	TotalMarks       float64    `json:"total_marks"`
	Percentage       float64    `json:"percentage"`
	TimeTakenSeconds int        `json:"time_taken_seconds"`
	AutoSubmitted    bool       `json:"auto_submitted"`
	StartedAt        time.Time  `json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at"`
}

// AttemptRepository owns the attempts and attempt_answers tables. An attempt
// sees exactly two writes in its life: the open insert and the submit update.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, test_id, student_id, started_at, submitted_at,
	score, total_marks, percentage, time_taken_seconds, auto_submitted`

// Create opens an attempt. It is a single atomic insert-or-fail: a second
// open for the same (test, student) pair hits the unique constraint and
// returns ErrDuplicateAttempt, never overwriting the first.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attempts (test_id, student_id, total_marks)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (test_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		a.TestID, a.StudentID, a.TotalMarks,
	).Scan(&a.ID, &a.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateAttempt
	}
	return err
}

// GetByTestAndStudent retrieves the attempt for a (test, student) pair.
func (r *AttemptRepository) GetByTestAndStudent(ctx context.Context, testID uuid.UUID, studentID int64) (*model.Attempt, error) {
	return r.scanOne(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE test_id = $1 AND student_id = $2`, testID, studentID)
}

// GetByID retrieves an attempt by primary key.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return r.scanOne(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id)
}

// Finalize closes an attempt: the score fields and the full answer list are
// persisted in one transaction, guarded by submitted_at IS NULL so the
// update happens at most once. Returns false when another submit already won
// the race; the attempt row is untouched in that case.
func (r *AttemptRepository) Finalize(ctx context.Context, p FinalizeParams) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET score = $1, percentage = $2, time_taken_seconds = $3,
		     auto_submitted = $4, submitted_at = $5
		 WHERE id = $6 AND submitted_at IS NULL`,
		p.Score, p.Percentage, p.TimeTakenSeconds,
		p.AutoSubmitted, p.SubmittedAt, p.AttemptID)
	if err != nil {
		return false, fmt.Errorf("update attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// submitted_at already set, or no such attempt. Caller decides.
		return false, nil
	}

	if len(p.Answers) > 0 {
		rows := make([][]any, 0, len(p.Answers))
		for _, slot := range p.Answers {
			rows = append(rows, []any{
				p.AttemptID, slot.QuestionID, slot.SelectedOption, slot.TextAnswer, slot.IsCorrect,
			})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"attempt_answers"},
			[]string{"attempt_id", "question_id", "selected_option", "text_answer", "is_correct"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return false, fmt.Errorf("copy answers: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// GetSummary loads a closed attempt with its answer slots joined to question
// content. Questions deleted after submission surface with empty content;
// the graded slot itself is preserved for audit.
func (r *AttemptRepository) GetSummary(ctx context.Context, attemptID uuid.UUID) (*model.AttemptSummary, error) {
	s := &model.AttemptSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.test_id, a.student_id, a.started_at, a.submitted_at,
		        a.score, a.total_marks, a.percentage, a.time_taken_seconds,
		        a.auto_submitted, t.title
		 FROM attempts a
		 JOIN tests t ON t.id = a.test_id
		 WHERE a.id = $1`, attemptID,
	).Scan(&s.ID, &s.TestID, &s.StudentID, &s.StartedAt, &s.SubmittedAt,
		&s.Score, &s.TotalMarks, &s.Percentage, &s.TimeTakenSeconds,
		&s.AutoSubmitted, &s.TestTitle)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT aa.question_id, aa.selected_option, aa.text_answer, aa.is_correct,
		        COALESCE(q.question_text, ''), COALESCE(q.question_type, 'multiple_choice'),
		        q.options, COALESCE(q.correct_answer, ''),
		        COALESCE(q.marks, 0), COALESCE(q.negative_marks, 0)
		 FROM attempt_answers aa
		 LEFT JOIN questions q ON q.id = aa.question_id
		 WHERE aa.attempt_id = $1
		 ORDER BY aa.id ASC`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ra model.ReviewedAnswer
		var optionsJSON []byte
		if err := rows.Scan(&ra.QuestionID, &ra.SelectedOption, &ra.TextAnswer,
			&ra.IsCorrect, &ra.QuestionText, &ra.QuestionType, &optionsJSON,
			&ra.CorrectAnswer, &ra.Marks, &ra.NegativeMarks); err != nil {
			return nil, err
		}
		if len(optionsJSON) > 0 {
			if err := json.Unmarshal(optionsJSON, &ra.Options); err != nil {
				return nil, fmt.Errorf("unmarshal options for question %s: %w", ra.QuestionID, err)
			}
		}
		s.Answers = append(s.Answers, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.SubmittedAt != nil {
		s.ElapsedSeconds = int(s.SubmittedAt.Sub(s.StartedAt).Seconds())
	}
	return s, nil
}

const resultColumns = `a.id, a.student_id, u.name, u.email,
	        a.score, a.total_marks, a.percentage, a.time_taken_seconds,
	        a.auto_submitted, a.started_at, a.submitted_at
	 FROM attempts a
	 JOIN users u ON u.id = a.student_id
	 WHERE a.test_id = $1
	 ORDER BY u.name ASC`

// ListResultsByTest retrieves all results for a test joined with student
// identity, ordered by student name. Used by the xlsx export, which is
// never paginated.
func (r *AttemptRepository) ListResultsByTest(ctx context.Context, testID uuid.UUID) ([]TestResult, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultColumns, testID)
	if err != nil {
		return nil, err
	}
	return scanResults(rows)
}

// ListResultsPageByTest retrieves one page of a test's results plus the
// total row count, for the paginated dashboard listing.
func (r *AttemptRepository) ListResultsPageByTest(ctx context.Context, testID uuid.UUID, page, perPage int) ([]TestResult, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE test_id = $1`, testID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` LIMIT $2 OFFSET $3`, testID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func scanResults(rows pgx.Rows) ([]TestResult, error) {
	defer rows.Close()

	var results []TestResult
	for rows.Next() {
		var res TestResult
		if err := rows.Scan(&res.AttemptID, &res.StudentID, &res.StudentName,
			&res.StudentEmail, &res.Score, &res.TotalMarks, &res.Percentage,
			&res.TimeTakenSeconds, &res.AutoSubmitted, &res.StartedAt,
			&res.SubmittedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListByStudent retrieves all of a student's attempts, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int64) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt,
			&a.SubmittedAt, &a.Score, &a.TotalMarks, &a.Percentage,
			&a.TimeTakenSeconds, &a.AutoSubmitted); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *AttemptRepository) scanOne(ctx context.Context, query string, args ...any) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt, &a.SubmittedAt,
			&a.Score, &a.TotalMarks, &a.Percentage, &a.TimeTakenSeconds, &a.AutoSubmitted)
	if err != nil {
		return nil, err
	}
	return a, nil
}
