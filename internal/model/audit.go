package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit action types.
const (
	ActionCourseCreated       = "course_created"
	ActionCourseUpdated       = "course_updated"
	ActionCourseDeleted       = "course_deleted"
	ActionModuleCreated       = "module_created"
	ActionModuleUpdated       = "module_updated"
	ActionModuleDeleted       = "module_deleted"
	ActionQuizCreated         = "quiz_created"
	ActionQuizDeleted         = "quiz_deleted"
	ActionAssignmentCreated   = "assignment_created"
	ActionAssignmentDeleted   = "assignment_deleted"
	ActionCourseEnrolled      = "course_enrolled"
	ActionModuleCompleted     = "module_completed"
	ActionQuizSubmitted       = "quiz_submitted"
	ActionAssignmentSubmitted = "assignment_submitted"
	ActionEnrollmentCompleted = "enrollment_completed"
	ActionUserRegistered      = "user_registered"
	ActionUserApproved        = "user_approved"
	ActionUserRejected        = "user_rejected"
	ActionUserSuspended       = "user_suspended"
	ActionUserDeleted         = "user_deleted"
	ActionProfileUpdated      = "profile_updated"
)

// AuditEntry is an append-only record of a state-changing action.
type AuditEntry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	ActionType string          `json:"action_type"`
	CourseID   *uuid.UUID      `json:"course_id,omitempty"`
	Details    json.RawMessage `json:"details"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AuditRecord is an entry enriched with the actor's current identity and the course title.
type AuditRecord struct {
	AuditEntry
	UserEmail   string  `json:"user_email"`
	UserName    string  `json:"user_name"`
	UserRole    string  `json:"user_role"`
	CourseTitle *string `json:"course_title,omitempty"`
}

// AuditFilter narrows an audit query. Role is matched against the actor's
// role at query time.
type AuditFilter struct {
	ActionType string
	Role       string
	CourseID   *uuid.UUID
}

// AuditPage is one page of an audit query.
type AuditPage struct {
	Entries      []AuditRecord `json:"entries"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	TotalPages   int           `json:"total_pages"`
	TotalRecords int           `json:"total_records"`
}
