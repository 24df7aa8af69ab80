package model

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentSubmissionStatus is the state of an assignment submission.
type AssignmentSubmissionStatus string

const (
	AssignmentSubmitted AssignmentSubmissionStatus = "submitted"
	AssignmentLate      AssignmentSubmissionStatus = "late"
)

// Assignment is a file-based task attached to a course and optionally a module.
type Assignment struct {
	ID          uuid.UUID  `json:"id"`
	CourseID    uuid.UUID  `json:"course_id"`
	ModuleID    *uuid.UUID `json:"module_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Points      float64    `json:"points"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AssignmentSubmission is an immutable uploaded attempt.
type AssignmentSubmission struct {
	ID           uuid.UUID                  `json:"id"`
	AssignmentID uuid.UUID                  `json:"assignment_id"`
	CourseID     uuid.UUID                  `json:"course_id"`
	StudentID    uuid.UUID                  `json:"student_id"`
	FileRef      string                     `json:"file_ref"`
	FileName     string                     `json:"file_name"`
	Comment      string                     `json:"comment,omitempty"`
	Status       AssignmentSubmissionStatus `json:"status"`
	Score        *float64                   `json:"score,omitempty"`
	Feedback     *string                    `json:"feedback,omitempty"`
	SubmittedAt  time.Time                  `json:"submitted_at"`
}

// CreateAssignmentRequest is the payload for adding an assignment.
type CreateAssignmentRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description string     `json:"description" binding:"max=5000"`
	ModuleID    *string    `json:"module_id" binding:"omitempty,uuid"`
	DueDate     *time.Time `json:"due_date"`
	Points      float64    `json:"points" binding:"min=0,max=1000"`
}
