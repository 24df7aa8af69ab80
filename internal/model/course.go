package model

import (
	"time"

	"github.com/google/uuid"
)

// CourseStatus enumerates course lifecycle states.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusArchived CourseStatus = "archived"
)

// Course is owned by the instructor who created it.
type Course struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	InstructorID uuid.UUID    `json:"instructor_id"`
	StartDate    *time.Time   `json:"start_date,omitempty"`
	EndDate      *time.Time   `json:"end_date,omitempty"`
	Status       CourseStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CourseFilter narrows course listings. Query matches title or description,
// case-insensitively.
type CourseFilter struct {
	InstructorID *uuid.UUID
	Status       *CourseStatus
	Query        string
}

// CourseDetail is the course with its ordered content.
type CourseDetail struct {
	Course
	Modules     []Module     `json:"modules"`
	Quizzes     []Quiz       `json:"quizzes"`
	Assignments []Assignment `json:"assignments"`
}

// CourseCascade counts the children removed together with a course.
type CourseCascade struct {
	Modules               int64 `json:"modules"`
	Quizzes               int64 `json:"quizzes"`
	Assignments           int64 `json:"assignments"`
	Enrollments           int64 `json:"enrollments"`
	QuizSubmissions       int64 `json:"quiz_submissions"`
	AssignmentSubmissions int64 `json:"assignment_submissions"`
}

// CourseStats summarizes enrollment outcomes for a course.
type CourseStats struct {
	TotalEnrolled        int     `json:"total_enrolled"`
	AverageProgress      float64 `json:"average_progress"`
	CompletionRate       float64 `json:"completion_rate"`
	QuizCompletion       float64 `json:"quiz_completion"`
	AssignmentCompletion float64 `json:"assignment_completion"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description string     `json:"description" binding:"max=5000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date" binding:"omitempty,gtfield=StartDate"`
}

// UpdateCourseRequest is the payload for updating a course. Nil fields are left unchanged.
type UpdateCourseRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=5000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Status      *string    `json:"status" binding:"omitempty,oneof=active archived"`
}
