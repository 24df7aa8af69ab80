package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the grading state of a quiz submission.
type SubmissionStatus string

const (
	SubmissionCompleted     SubmissionStatus = "completed"
	SubmissionPendingReview SubmissionStatus = "pending_review"
)

// QuestionFeedback is the grading outcome of a single answered question.
// Correct is nil while the answer waits for manual review.
type QuestionFeedback struct {
	QuestionID    string       `json:"question_id"`
	Type          QuestionType `json:"type"`
	Correct       *bool        `json:"correct"`
	PointsAwarded float64      `json:"points_awarded"`
	MaxPoints     float64      `json:"max_points"`
	Answer        string       `json:"answer"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	PendingReview bool         `json:"pending_review,omitempty"`
}

// GradingResult aggregates the graded questions of one submission.
// Passed is nil while the submission is pending review.
type GradingResult struct {
	Score          float64            `json:"score"`
	PointsScored   float64            `json:"points_scored"`
	PointsPossible float64            `json:"points_possible"`
	Feedback       []QuestionFeedback `json:"feedback"`
	Status         SubmissionStatus   `json:"status"`
	Passed         *bool              `json:"passed"`
}

// QuizSubmission is an immutable graded attempt.
type QuizSubmission struct {
	ID             uuid.UUID          `json:"id"`
	QuizID         uuid.UUID          `json:"quiz_id"`
	CourseID       uuid.UUID          `json:"course_id"`
	StudentID      uuid.UUID          `json:"student_id"`
	AttemptNumber  int                `json:"attempt_number"`
	Answers        map[string]string  `json:"answers"`
	Feedback       []QuestionFeedback `json:"feedback"`
	PointsPossible float64            `json:"points_possible"`
	PointsScored   float64            `json:"points_scored"`
	Score          float64            `json:"score"`
	Status         SubmissionStatus   `json:"status"`
	Passed         *bool              `json:"passed"`
	SubmittedAt    time.Time          `json:"submitted_at"`
}

// SubmitQuizRequest carries the raw answers object; it is decoded and
// checked by the grading package rather than by struct tags.
type SubmitQuizRequest struct {
	Answers json.RawMessage `json:"answers"`
}
