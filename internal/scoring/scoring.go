// Package scoring implements the pure grading function for test attempts.
// It performs no I/O: callers resolve questions and persist results.
package scoring

import (
	"strings"

	"github.com/google/uuid"
	"github.com/testlane/testlane-backend/internal/model"
)

// Result aggregates the outcome of grading one full submission.
type Result struct {
	// Slots holds one graded answer per resolvable submitted answer,
	// in submission order.
	Slots []model.AnswerSlot
	// Score is the aggregate: +marks per correct, -negative_marks per
	// incorrect. No floor is applied, so it may be negative.
	Score float64
	// Dropped lists question IDs that could not be resolved (deleted
	// after the attempt was opened). Their answers are excluded from
	// Slots rather than scored as incorrect.
	Dropped []uuid.UUID
}

// Grade evaluates every submitted answer against its question definition.
// Questions not present in the map are dropped, not penalized. Questions
// never answered contribute nothing: neither credit nor penalty.
func Grade(questions map[uuid.UUID]model.Question, answers []model.SubmittedAnswer) Result {
	res := Result{Slots: make([]model.AnswerSlot, 0, len(answers))}

	for _, ans := range answers {
		q, ok := questions[ans.QuestionID]
		if !ok {
			res.Dropped = append(res.Dropped, ans.QuestionID)
			continue
		}

		correct := Evaluate(q, ans)
		if correct {
			res.Score += q.Marks
		} else {
			res.Score -= q.NegativeMarks
		}

		isCorrect := correct
		res.Slots = append(res.Slots, model.AnswerSlot{
			QuestionID:     ans.QuestionID,
			SelectedOption: ans.SelectedOption,
			TextAnswer:     ans.TextAnswer,
			IsCorrect:      &isCorrect,
		})
	}

	return res
}

// Evaluate reports whether a single answer is correct.
func Evaluate(q model.Question, ans model.SubmittedAnswer) bool {
	switch q.QuestionType {
	case model.QuestionTypeFillInBlank:
		return evaluateFillInBlank(q.CorrectAnswer, ans.TextAnswer)
	default:
		return evaluateMultipleChoice(q.Options, ans.SelectedOption)
	}
}

// evaluateMultipleChoice treats a missing or out-of-range option index as
// incorrect rather than an error.
func evaluateMultipleChoice(options []model.Option, selected *int) bool {
	if selected == nil {
		return false
	}
	idx := *selected
	if idx < 0 || idx >= len(options) {
		return false
	}
	return options[idx].IsCorrect
}

// evaluateFillInBlank matches case-insensitively after trimming leading and
// trailing whitespace on both sides. An empty or missing answer is incorrect.
func evaluateFillInBlank(correctAnswer string, textAnswer *string) bool {
	if textAnswer == nil {
		return false
	}
	given := strings.TrimSpace(*textAnswer)
	want := strings.TrimSpace(correctAnswer)
	if given == "" || want == "" {
		return false
	}
	return strings.EqualFold(given, want)
}

// Percentage computes 100 * score / totalMarks. A non-positive totalMarks
// yields 0 instead of dividing by zero.
func Percentage(score, totalMarks float64) float64 {
	if totalMarks <= 0 {
		return 0
	}
	return score / totalMarks * 100
}

// TotalMarks sums the marks of a question set. Used to freeze an attempt's
// denominator at open time.
func TotalMarks(questions []model.Question) float64 {
	var total float64
	for _, q := range questions {
		total += q.Marks
	}
	return total
}
