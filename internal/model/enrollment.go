package model

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus is the lifecycle state of an enrollment.
// The only transition is enrolled -> completed.
type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// QuizAttemptSummary is the latest attempt recorded for one quiz.
type QuizAttemptSummary struct {
	SubmissionID  uuid.UUID        `json:"submission_id"`
	AttemptNumber int              `json:"attempt_number"`
	Score         float64          `json:"score"`
	Status        SubmissionStatus `json:"status"`
	Passed        *bool            `json:"passed"`
	SubmittedAt   time.Time        `json:"submitted_at"`
}

// AssignmentSubmissionSummary is the latest submission recorded for one assignment.
type AssignmentSubmissionSummary struct {
	SubmissionID uuid.UUID                  `json:"submission_id"`
	Status       AssignmentSubmissionStatus `json:"status"`
	FileRef      string                     `json:"file_ref"`
	SubmittedAt  time.Time                  `json:"submitted_at"`
}

// Enrollment aggregates one student's progress in one course. Version is
// bumped by every successful write and guards compare-and-swap updates.
type Enrollment struct {
	ID                    uuid.UUID                              `json:"id"`
	StudentID             uuid.UUID                              `json:"student_id"`
	CourseID              uuid.UUID                              `json:"course_id"`
	Status                EnrollmentStatus                       `json:"status"`
	Progress              float64                                `json:"progress"`
	CompletedModules      []uuid.UUID                            `json:"completed_modules"`
	QuizAttempts          map[string]QuizAttemptSummary          `json:"quiz_attempts"`
	AssignmentSubmissions map[string]AssignmentSubmissionSummary `json:"assignment_submissions"`
	EnrolledAt            time.Time                              `json:"enrolled_at"`
	LastAccessed          time.Time                              `json:"last_accessed"`
	CompletedAt           *time.Time                             `json:"completed_at,omitempty"`
	Version               int64                                  `json:"version"`
}

// NewEnrollment returns a fresh enrolled record with empty progress.
func NewEnrollment(studentID, courseID uuid.UUID, now time.Time) *Enrollment {
	return &Enrollment{
		ID:                    uuid.New(),
		StudentID:             studentID,
		CourseID:              courseID,
		Status:                EnrollmentEnrolled,
		CompletedModules:      []uuid.UUID{},
		QuizAttempts:          map[string]QuizAttemptSummary{},
		AssignmentSubmissions: map[string]AssignmentSubmissionSummary{},
		EnrolledAt:            now,
		LastAccessed:          now,
	}
}

// IsCompleted reports whether the enrollment reached its terminal state.
func (e *Enrollment) IsCompleted() bool {
	return e.Status == EnrollmentCompleted
}

// Touch stamps last_accessed.
func (e *Enrollment) Touch(now time.Time) {
	e.LastAccessed = now
}

// CompleteModule adds moduleID to the completed list. It returns false when
// the module was already completed; the list is left unchanged in that case.
func (e *Enrollment) CompleteModule(moduleID uuid.UUID, now time.Time) bool {
	e.Touch(now)
	if slices.Contains(e.CompletedModules, moduleID) {
		return false
	}
	e.CompletedModules = append(e.CompletedModules, moduleID)
	return true
}

// RecordQuizAttempt replaces the latest attempt summary for quizID.
func (e *Enrollment) RecordQuizAttempt(quizID uuid.UUID, s QuizAttemptSummary, now time.Time) {
	if e.QuizAttempts == nil {
		e.QuizAttempts = map[string]QuizAttemptSummary{}
	}
	e.QuizAttempts[quizID.String()] = s
	e.Touch(now)
}

// RecordAssignmentSubmission replaces the latest submission summary for assignmentID.
func (e *Enrollment) RecordAssignmentSubmission(assignmentID uuid.UUID, s AssignmentSubmissionSummary, now time.Time) {
	if e.AssignmentSubmissions == nil {
		e.AssignmentSubmissions = map[string]AssignmentSubmissionSummary{}
	}
	e.AssignmentSubmissions[assignmentID.String()] = s
	e.Touch(now)
}

// MarkCompleted moves the enrollment to its terminal state with progress 100.
// It returns false if the enrollment was already completed.
func (e *Enrollment) MarkCompleted(now time.Time) bool {
	e.Touch(now)
	if e.IsCompleted() {
		return false
	}
	e.Status = EnrollmentCompleted
	e.Progress = 100
	e.CompletedAt = &now
	return true
}

// RecomputeProgress derives the progress percentage from the course's live
// module set. Completed ids that no longer exist are not counted, so the
// result never exceeds 100. A completed enrollment stays pinned at 100.
func (e *Enrollment) RecomputeProgress(liveModules []uuid.UUID) {
	if e.IsCompleted() {
		e.Progress = 100
		return
	}
	if len(liveModules) == 0 {
		e.Progress = 0
		return
	}

	live := make(map[uuid.UUID]struct{}, len(liveModules))
	for _, id := range liveModules {
		live[id] = struct{}{}
	}

	done := 0
	for _, id := range e.CompletedModules {
		if _, ok := live[id]; ok {
			done++
		}
	}

	e.Progress = Round2(float64(done) / float64(len(live)) * 100)
}

// NextQuizAttempt returns the attempt number the next submission for quizID would get.
func (e *Enrollment) NextQuizAttempt(quizID uuid.UUID) int {
	if s, ok := e.QuizAttempts[quizID.String()]; ok {
		return s.AttemptNumber + 1
	}
	return 1
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EnrollmentProgress is the read model returned by progress queries.
type EnrollmentProgress struct {
	Enrollment
	TotalModules     int `json:"total_modules"`
	CompletedCount   int `json:"completed_count"`
	TotalQuizzes     int `json:"total_quizzes"`
	TotalAssignments int `json:"total_assignments"`
}

// EnrollmentWithCourse pairs an enrollment with its course title for listings.
type EnrollmentWithCourse struct {
	Enrollment
	CourseTitle string `json:"course_title"`
}
