package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testlane/testlane-backend/internal/model"
)

// QuestionRepository handles question data access. Options are stored as a
// JSONB array on the row.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, test_id, teacher_id, question_text, question_type,
	options, correct_answer, marks, negative_marks, image, position`

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions
			(test_id, teacher_id, question_text, question_type, options,
			 correct_answer, marks, negative_marks, image, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		q.TestID, q.TeacherID, q.QuestionText, q.QuestionType, optionsJSON,
		q.CorrectAnswer, q.Marks, q.NegativeMarks, q.Image, q.Position,
	).Scan(&q.ID)
}

// GetByID retrieves a question by its UUID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	var optionsJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.TestID, &q.TeacherID, &q.QuestionText, &q.QuestionType,
		&optionsJSON, &q.CorrectAnswer, &q.Marks, &q.NegativeMarks, &q.Image, &q.Position)
	if err != nil {
		return nil, err
	}
	if err := unmarshalOptions(optionsJSON, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListByTest retrieves a test's questions in position order.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE test_id = $1
		 ORDER BY position ASC, id ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var optionsJSON []byte
		if err := rows.Scan(&q.ID, &q.TestID, &q.TeacherID, &q.QuestionText,
			&q.QuestionType, &optionsJSON, &q.CorrectAnswer, &q.Marks,
			&q.NegativeMarks, &q.Image, &q.Position); err != nil {
			return nil, err
		}
		if err := unmarshalOptions(optionsJSON, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Update modifies a question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE questions
		 SET question_text = $1, options = $2, correct_answer = $3,
		     marks = $4, negative_marks = $5, image = $6, position = $7
		 WHERE id = $8`,
		q.QuestionText, optionsJSON, q.CorrectAnswer,
		q.Marks, q.NegativeMarks, q.Image, q.Position, q.ID)
	return err
}

// Delete removes a question. Persisted attempt answers keep their question_id
// for audit; summaries tolerate the missing row.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// SumMarksByTest returns the current sum of marks over a test's questions.
// Attempt open freezes this value into the attempt row.
func (r *QuestionRepository) SumMarksByTest(ctx context.Context, testID uuid.UUID) (float64, int, error) {
	var total float64
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(marks), 0), COUNT(*) FROM questions WHERE test_id = $1`,
		testID,
	).Scan(&total, &count)
	return total, count, err
}

func unmarshalOptions(raw []byte, q *model.Question) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return fmt.Errorf("unmarshal options for question %s: %w", q.ID, err)
	}
	return nil
}
