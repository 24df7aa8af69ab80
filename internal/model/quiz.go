package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType tags how a question is graded.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionScenarioBased  QuestionType = "scenario_based"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, QuestionScenarioBased:
		return true
	}
	return false
}

// ManualReview reports whether answers of this type need a human grader.
func (t QuestionType) ManualReview() bool {
	return t == QuestionShortAnswer || t == QuestionScenarioBased
}

// Quiz defaults applied when a create request omits them.
const (
	DefaultQuizTimeLimit    = 30
	DefaultQuizPassingScore = 60
	DefaultQuizMaxAttempts  = 3
	DefaultQuestionPoints   = 1
)

// Question is one entry of a quiz. CorrectAnswer is nil for manual-review types.
type Question struct {
	ID            string       `json:"id"`
	Prompt        string       `json:"prompt"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Points        float64      `json:"points"`
	Explanation   string       `json:"explanation,omitempty"`
}

// Quiz belongs to a course and holds its questions in order.
type Quiz struct {
	ID           uuid.UUID  `json:"id"`
	CourseID     uuid.UUID  `json:"course_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TimeLimit    int        `json:"time_limit"`
	PassingScore float64    `json:"passing_score"`
	MaxAttempts  int        `json:"max_attempts"`
	Questions    []Question `json:"questions"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasManualReview reports whether any question requires a human grader.
func (q *Quiz) HasManualReview() bool {
	for _, qu := range q.Questions {
		if qu.Type.ManualReview() {
			return true
		}
	}
	return false
}

// Redacted returns a copy with correct answers and explanations removed,
// for learners who have not yet submitted.
func (q Quiz) Redacted() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qu := range q.Questions {
		qu.CorrectAnswer = nil
		qu.Explanation = ""
		out.Questions[i] = qu
	}
	return out
}

// QuestionInput is one question of a quiz create request.
type QuestionInput struct {
	Prompt        string   `json:"prompt" binding:"required,max=2000"`
	Type          string   `json:"type" binding:"required,question_type"`
	Options       []string `json:"options" binding:"omitempty,dive,required,max=500"`
	CorrectAnswer *string  `json:"correct_answer" binding:"omitempty,max=2000"`
	Points        *float64 `json:"points" binding:"omitempty,min=0"`
	Explanation   string   `json:"explanation" binding:"max=2000"`
}

// CreateQuizRequest is the payload for adding a quiz to a course.
type CreateQuizRequest struct {
	Title        string          `json:"title" binding:"required,min=1,max=200"`
	Description  string          `json:"description" binding:"max=5000"`
	TimeLimit    *int            `json:"time_limit" binding:"omitempty,min=1,max=600"`
	PassingScore *float64        `json:"passing_score" binding:"omitempty,min=0,max=100"`
	MaxAttempts  *int            `json:"max_attempts" binding:"omitempty,min=1,max=100"`
	Questions    []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}
