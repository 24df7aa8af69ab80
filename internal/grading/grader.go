// Package grading scores quiz submissions. Everything here is pure: no I/O,
// no clocks, so re-grading the same answers always yields the same result.
package grading

import (
	"strings"

	"github.com/stemsi/coursehub-backend/internal/model"
)

// GradeQuestion scores one submitted answer against its question.
// Manual-review types are never auto-graded: Correct stays nil, no points
// are awarded and the raw answer is carried for the reviewer.
func GradeQuestion(q model.Question, answer string) model.QuestionFeedback {
	fb := model.QuestionFeedback{
		QuestionID: q.ID,
		Type:       q.Type,
		MaxPoints:  q.Points,
		Answer:     answer,
	}

	if q.Type.ManualReview() {
		fb.PendingReview = true
		return fb
	}

	var correct bool
	if q.CorrectAnswer != nil {
		switch q.Type {
		case model.QuestionMultipleChoice:
			correct = normalize(answer) == normalize(*q.CorrectAnswer)
		case model.QuestionTrueFalse:
			correct = asBool(answer) == asBool(*q.CorrectAnswer)
		}
	}

	fb.Correct = &correct
	fb.CorrectAnswer = q.CorrectAnswer
	fb.Explanation = q.Explanation
	if correct {
		fb.PointsAwarded = q.Points
	}
	return fb
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func asBool(s string) bool {
	return normalize(s) == "true"
}
