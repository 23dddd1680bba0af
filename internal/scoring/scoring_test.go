package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/testlane/testlane-backend/internal/model"
)

func mcQuestion(id uuid.UUID, marks, negative float64, correctIdx int, optionCount int) model.Question {
	opts := make([]model.Option, optionCount)
	for i := range opts {
		opts[i] = model.Option{Text: string(rune('A' + i)), IsCorrect: i == correctIdx}
	}
	return model.Question{
		ID:            id,
		QuestionType:  model.QuestionTypeMultipleChoice,
		Options:       opts,
		Marks:         marks,
		NegativeMarks: negative,
	}
}

func fibQuestion(id uuid.UUID, answer string, marks, negative float64) model.Question {
	return model.Question{
		ID:            id,
		QuestionType:  model.QuestionTypeFillInBlank,
		CorrectAnswer: answer,
		Marks:         marks,
		NegativeMarks: negative,
	}
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestEvaluate_MultipleChoice(t *testing.T) {
	q := mcQuestion(uuid.New(), 1, 0, 1, 3)

	tests := []struct {
		name     string
		selected *int
		want     bool
	}{
		{name: "correct option", selected: intPtr(1), want: true},
		{name: "wrong option", selected: intPtr(0), want: false},
		{name: "out of range high", selected: intPtr(7), want: false},
		{name: "negative index", selected: intPtr(-1), want: false},
		{name: "missing selection", selected: nil, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(q, model.SubmittedAnswer{QuestionID: q.ID, SelectedOption: tc.selected})
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestEvaluate_FillInBlank(t *testing.T) {
	q := fibQuestion(uuid.New(), "Paris", 1, 0)

	tests := []struct {
		name   string
		answer *string
		want   bool
	}{
		{name: "exact match", answer: strPtr("Paris"), want: true},
		{name: "surrounding whitespace", answer: strPtr("  paris  "), want: true},
		{name: "uppercase", answer: strPtr("PARIS"), want: true},
		{name: "wrong answer", answer: strPtr("London"), want: false},
		{name: "empty string", answer: strPtr(""), want: false},
		{name: "whitespace only", answer: strPtr("   "), want: false},
		{name: "missing answer", answer: nil, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(q, model.SubmittedAnswer{QuestionID: q.ID, TextAnswer: tc.answer})
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestEvaluate_FillInBlankKeyWithWhitespace(t *testing.T) {
	q := fibQuestion(uuid.New(), "  Paris ", 1, 0)
	if !Evaluate(q, model.SubmittedAnswer{QuestionID: q.ID, TextAnswer: strPtr("paris")}) {
		t.Fatal("expected whitespace-padded key to match trimmed answer")
	}
}

func TestGrade_NegativeMarking(t *testing.T) {
	q := mcQuestion(uuid.New(), 2, 0.5, 0, 3)
	questions := map[uuid.UUID]model.Question{q.ID: q}

	t.Run("incorrect contributes minus penalty", func(t *testing.T) {
		res := Grade(questions, []model.SubmittedAnswer{{QuestionID: q.ID, SelectedOption: intPtr(2)}})
		if res.Score != -0.5 {
			t.Fatalf("expected score -0.5, got %v", res.Score)
		}
	})

	t.Run("correct contributes full marks", func(t *testing.T) {
		res := Grade(questions, []model.SubmittedAnswer{{QuestionID: q.ID, SelectedOption: intPtr(0)}})
		if res.Score != 2 {
			t.Fatalf("expected score 2, got %v", res.Score)
		}
	})

	t.Run("unanswered contributes zero", func(t *testing.T) {
		res := Grade(questions, nil)
		if res.Score != 0 || len(res.Slots) != 0 {
			t.Fatalf("expected empty zero-score result, got %+v", res)
		}
	})
}

func TestGrade_DropsUnresolvableQuestions(t *testing.T) {
	q := mcQuestion(uuid.New(), 1, 1, 0, 2)
	deleted := uuid.New()
	questions := map[uuid.UUID]model.Question{q.ID: q}

	res := Grade(questions, []model.SubmittedAnswer{
		{QuestionID: deleted, SelectedOption: intPtr(0)},
		{QuestionID: q.ID, SelectedOption: intPtr(0)},
	})

	if len(res.Slots) != 1 {
		t.Fatalf("expected 1 persisted slot, got %d", len(res.Slots))
	}
	if res.Slots[0].QuestionID != q.ID {
		t.Fatalf("expected surviving slot for %s, got %s", q.ID, res.Slots[0].QuestionID)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != deleted {
		t.Fatalf("expected dropped list [%s], got %v", deleted, res.Dropped)
	}
	// The deleted question must not be penalized.
	if res.Score != 1 {
		t.Fatalf("expected score 1, got %v", res.Score)
	}
}

func TestGrade_Idempotent(t *testing.T) {
	q1 := mcQuestion(uuid.New(), 1, 0.25, 1, 4)
	q2 := fibQuestion(uuid.New(), "gc", 3, 1)
	questions := map[uuid.UUID]model.Question{q1.ID: q1, q2.ID: q2}
	answers := []model.SubmittedAnswer{
		{QuestionID: q1.ID, SelectedOption: intPtr(2)},
		{QuestionID: q2.ID, TextAnswer: strPtr(" GC ")},
	}

	first := Grade(questions, answers)
	second := Grade(questions, answers)

	if first.Score != second.Score {
		t.Fatalf("scores differ: %v vs %v", first.Score, second.Score)
	}
	if len(first.Slots) != len(second.Slots) {
		t.Fatalf("slot counts differ: %d vs %d", len(first.Slots), len(second.Slots))
	}
	for i := range first.Slots {
		if *first.Slots[i].IsCorrect != *second.Slots[i].IsCorrect {
			t.Fatalf("slot %d correctness differs", i)
		}
	}
}

func TestGrade_AllCorrectFullPercentage(t *testing.T) {
	q1 := mcQuestion(uuid.New(), 1, 0, 0, 3)
	q2 := fibQuestion(uuid.New(), "mitochondria", 1, 0)
	questions := map[uuid.UUID]model.Question{q1.ID: q1, q2.ID: q2}

	res := Grade(questions, []model.SubmittedAnswer{
		{QuestionID: q1.ID, SelectedOption: intPtr(0)},
		{QuestionID: q2.ID, TextAnswer: strPtr("Mitochondria")},
	})

	total := TotalMarks([]model.Question{q1, q2})
	if res.Score != 2 || total != 2 {
		t.Fatalf("expected score 2 of 2, got %v of %v", res.Score, total)
	}
	if pct := Percentage(res.Score, total); pct != 100 {
		t.Fatalf("expected 100%%, got %v", pct)
	}
}

func TestPercentage_ZeroTotalMarks(t *testing.T) {
	if got := Percentage(5, 0); got != 0 {
		t.Fatalf("expected 0 for zero total marks, got %v", got)
	}
	if got := Percentage(-1, 4); got != -25 {
		t.Fatalf("expected -25, got %v", got)
	}
}

func TestGrade_AggregateCanGoNegative(t *testing.T) {
	q1 := mcQuestion(uuid.New(), 1, 2, 0, 2)
	q2 := mcQuestion(uuid.New(), 1, 2, 0, 2)
	questions := map[uuid.UUID]model.Question{q1.ID: q1, q2.ID: q2}

	res := Grade(questions, []model.SubmittedAnswer{
		{QuestionID: q1.ID, SelectedOption: intPtr(1)},
		{QuestionID: q2.ID, SelectedOption: intPtr(1)},
	})
	if res.Score != -4 {
		t.Fatalf("expected -4, got %v", res.Score)
	}
}
