package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is one of the fixed platform roles.
type Role string

const (
	RoleInstructor  Role = "Instructor"
	RoleParticipant Role = "Participant"
	RoleHRAdmin     Role = "HR Admin"
	RoleManager     Role = "Manager"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleInstructor, RoleParticipant, RoleHRAdmin, RoleManager:
		return true
	}
	return false
}

// UserStatus enumerates account approval states.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusApproved  UserStatus = "approved"
	UserStatusRejected  UserStatus = "rejected"
	UserStatusSuspended UserStatus = "suspended"
)

// User is a platform account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegisterRequest is the payload for self-registration.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Role      string `json:"role" binding:"required,oneof=Instructor Participant 'HR Admin' Manager"`
}

// LoginRequest is the payload for password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Status *UserStatus
	Role   *Role
}

// UpdateProfileRequest changes the caller's own display name. Nil fields are left as they are.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
}

// UserProfile is an account together with its enrollments.
type UserProfile struct {
	User
	Enrollments []EnrollmentWithCourse `json:"enrollments"`
}
