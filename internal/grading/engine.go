package grading

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// GradeSubmission grades every question of quiz that has an entry in answers.
// Questions without an answer and answers for unknown question ids are
// skipped and do not count toward the possible points.
func GradeSubmission(quiz *model.Quiz, answers map[string]string) model.GradingResult {
	res := model.GradingResult{
		Feedback: make([]model.QuestionFeedback, 0, len(answers)),
		Status:   model.SubmissionCompleted,
	}

	for _, q := range quiz.Questions {
		ans, ok := answers[q.ID]
		if !ok {
			continue
		}
		fb := GradeQuestion(q, ans)
		res.PointsPossible += q.Points
		res.PointsScored += fb.PointsAwarded
		res.Feedback = append(res.Feedback, fb)
	}

	if res.PointsPossible > 0 {
		res.Score = model.Round2(res.PointsScored / res.PointsPossible * 100)
	}

	// One open-ended question anywhere in the quiz holds the whole submission.
	if quiz.HasManualReview() {
		res.Status = model.SubmissionPendingReview
		return res
	}

	passed := res.Score >= quiz.PassingScore
	res.Passed = &passed
	return res
}

// ParseAnswers decodes a raw answers payload into question id -> answer.
// The payload must be a JSON object whose keys are non-empty and whose
// values are strings, booleans or numbers.
func ParseAnswers(raw json.RawMessage) (map[string]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, apperror.InvalidInput("answers is required")
	}
	if trimmed[0] != '{' {
		return nil, apperror.InvalidInput("answers must be an object of question id to answer")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, apperror.InvalidInput("answers is not valid JSON")
	}

	out := make(map[string]string, len(values))
	for id, v := range values {
		if id == "" {
			return nil, apperror.InvalidInput("answers contains an empty question id")
		}
		switch val := v.(type) {
		case string:
			out[id] = val
		case bool:
			out[id] = strconv.FormatBool(val)
		case json.Number:
			out[id] = val.String()
		default:
			return nil, apperror.InvalidInput("answer for question %q must be a string, boolean or number", id)
		}
	}
	return out, nil
}
