package grading

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

func strPtr(s string) *string { return &s }

func mc(id, correct string, points float64) model.Question {
	return model.Question{
		ID:            id,
		Type:          model.QuestionMultipleChoice,
		Options:       []string{"A", "B", "C"},
		CorrectAnswer: strPtr(correct),
		Points:        points,
	}
}

func quizOf(passing float64, qs ...model.Question) *model.Quiz {
	return &model.Quiz{ID: uuid.New(), PassingScore: passing, MaxAttempts: 3, Questions: qs}
}

func TestGradeQuestion(t *testing.T) {
	tests := []struct {
		name    string
		q       model.Question
		answer  string
		correct *bool
		points  float64
		pending bool
	}{
		{"mc exact", mc("q1", "A", 1), "A", boolPtr(true), 1, false},
		{"mc case and space", mc("q1", "Paris ", 2), "  paris", boolPtr(true), 2, false},
		{"mc wrong", mc("q1", "A", 1), "B", boolPtr(false), 0, false},
		{"tf true variants", model.Question{ID: "q", Type: model.QuestionTrueFalse, CorrectAnswer: strPtr("True"), Points: 1}, " TRUE ", boolPtr(true), 1, false},
		{"tf anything else is false", model.Question{ID: "q", Type: model.QuestionTrueFalse, CorrectAnswer: strPtr("false"), Points: 1}, "no", boolPtr(true), 1, false},
		{"tf mismatch", model.Question{ID: "q", Type: model.QuestionTrueFalse, CorrectAnswer: strPtr("false"), Points: 1}, "true", boolPtr(false), 0, false},
		{"short answer", model.Question{ID: "q", Type: model.QuestionShortAnswer, Points: 5}, "free text", nil, 0, true},
		{"scenario", model.Question{ID: "q", Type: model.QuestionScenarioBased, Points: 3}, "plan", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := GradeQuestion(tt.q, tt.answer)
			if (fb.Correct == nil) != (tt.correct == nil) {
				t.Fatalf("correct = %v, want %v", fb.Correct, tt.correct)
			}
			if fb.Correct != nil && *fb.Correct != *tt.correct {
				t.Errorf("correct = %v, want %v", *fb.Correct, *tt.correct)
			}
			if fb.PointsAwarded != tt.points {
				t.Errorf("points = %v, want %v", fb.PointsAwarded, tt.points)
			}
			if fb.PendingReview != tt.pending {
				t.Errorf("pending = %v, want %v", fb.PendingReview, tt.pending)
			}
			if fb.Answer != tt.answer {
				t.Errorf("raw answer = %q, want %q", fb.Answer, tt.answer)
			}
			if fb.MaxPoints != tt.q.Points {
				t.Errorf("max points = %v, want %v", fb.MaxPoints, tt.q.Points)
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestGradeSubmissionExample(t *testing.T) {
	quiz := quizOf(60, mc("q1", "A", 1), mc("q2", "B", 1))

	res := GradeSubmission(quiz, map[string]string{"q1": "a", "q2": "c"})

	if res.PointsScored != 1 || res.PointsPossible != 2 {
		t.Fatalf("scored/possible = %v/%v, want 1/2", res.PointsScored, res.PointsPossible)
	}
	if res.Score != 50 {
		t.Fatalf("score = %v, want 50", res.Score)
	}
	if res.Status != model.SubmissionCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if res.Passed == nil || *res.Passed {
		t.Fatalf("passed = %v, want false at passing score 60", res.Passed)
	}

	quiz.PassingScore = 50
	res = GradeSubmission(quiz, map[string]string{"q1": "a", "q2": "c"})
	if res.Passed == nil || !*res.Passed {
		t.Fatal("50 should pass at passing score 50")
	}
}

func TestGradeSubmissionDeterministic(t *testing.T) {
	quiz := quizOf(70,
		mc("q1", "A", 1),
		mc("q2", "B", 2),
		model.Question{ID: "q3", Type: model.QuestionTrueFalse, CorrectAnswer: strPtr("true"), Points: 1.5},
	)
	answers := map[string]string{"q1": "A", "q2": "x", "q3": "TRUE"}

	first := GradeSubmission(quiz, answers)
	for i := 0; i < 10; i++ {
		again := GradeSubmission(quiz, answers)
		if again.Score != first.Score || again.PointsScored != first.PointsScored {
			t.Fatalf("run %d: score %v, first %v", i, again.Score, first.Score)
		}
	}
}

func TestGradeSubmissionPendingReviewIsQuizWide(t *testing.T) {
	quiz := quizOf(50,
		mc("q1", "A", 1),
		mc("q2", "B", 1),
		model.Question{ID: "q3", Type: model.QuestionShortAnswer, Points: 4},
	)

	// q3 left unanswered: the quiz still contains a manual question.
	res := GradeSubmission(quiz, map[string]string{"q1": "A", "q2": "B"})

	if res.Status != model.SubmissionPendingReview {
		t.Fatalf("status = %s, want pending_review", res.Status)
	}
	if res.Passed != nil {
		t.Fatalf("passed = %v, want nil while pending", *res.Passed)
	}
	if res.Score != 100 {
		t.Fatalf("score = %v, want 100 over answered questions", res.Score)
	}
}

func TestGradeSubmissionZeroPossible(t *testing.T) {
	tests := []struct {
		name    string
		quiz    *model.Quiz
		answers map[string]string
	}{
		{"no answers", quizOf(0, mc("q1", "A", 1)), map[string]string{}},
		{"unknown ids only", quizOf(0, mc("q1", "A", 1)), map[string]string{"nope": "A"}},
		{"zero weight", quizOf(0, mc("q1", "A", 0)), map[string]string{"q1": "A"}},
		{"empty quiz", quizOf(0), map[string]string{"q1": "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := GradeSubmission(tt.quiz, tt.answers)
			if res.PointsPossible != 0 || res.Score != 0 {
				t.Fatalf("possible=%v score=%v, want 0/0", res.PointsPossible, res.Score)
			}
		})
	}
}

func TestGradeSubmissionScoreBounds(t *testing.T) {
	quiz := quizOf(0, mc("q1", "A", 3), mc("q2", "B", 0.5), mc("q3", "C", 7))
	answerSets := []map[string]string{
		{"q1": "A", "q2": "B", "q3": "C"},
		{"q1": "x", "q2": "x", "q3": "x"},
		{"q1": "A"},
		{"q2": "b", "q3": "c ", "zzz": "A"},
	}
	for _, a := range answerSets {
		res := GradeSubmission(quiz, a)
		if res.Score < 0 || res.Score > 100 {
			t.Fatalf("score %v out of range for %v", res.Score, a)
		}
	}
}

func TestParseAnswers(t *testing.T) {
	got, err := ParseAnswers(json.RawMessage(`{"q1":"A","q2":true,"q3":4}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"q1": "A", "q2": "true", "q3": "4"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("answers[%s] = %q, want %q", k, got[k], v)
		}
	}

	bad := []string{
		``,
		`null`,
		`"A"`,
		`["A"]`,
		`{"q1":{"nested":1}}`,
		`{"q1":["A"]}`,
		`{"q1":null}`,
		`{"":"A"}`,
		`{"q1":`,
	}
	for _, raw := range bad {
		if _, err := ParseAnswers(json.RawMessage(raw)); !errors.Is(err, apperror.ErrInvalidInput) {
			t.Errorf("ParseAnswers(%q) err = %v, want invalid input", raw, err)
		}
	}
}
