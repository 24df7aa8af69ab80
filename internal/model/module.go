package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ModuleStatus enumerates module publication states.
type ModuleStatus string

const (
	ModuleStatusDraft     ModuleStatus = "draft"
	ModuleStatusPublished ModuleStatus = "published"
)

// Module is an ordered unit of course content.
type Module struct {
	ID        uuid.UUID       `json:"id"`
	CourseID  uuid.UUID       `json:"course_id"`
	Title     string          `json:"title"`
	Order     int             `json:"order"`
	Content   json.RawMessage `json:"content"`
	Status    ModuleStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateModuleRequest is the payload for adding a module to a course.
type CreateModuleRequest struct {
	Title   string          `json:"title" binding:"required,min=1,max=200"`
	Order   int             `json:"order" binding:"min=0"`
	Content json.RawMessage `json:"content"`
	Status  string          `json:"status" binding:"omitempty,oneof=draft published"`
}

// UpdateModuleRequest is the payload for editing a module. Nil fields are left unchanged.
type UpdateModuleRequest struct {
	Title   *string         `json:"title" binding:"omitempty,min=1,max=200"`
	Order   *int            `json:"order" binding:"omitempty,min=0"`
	Content json.RawMessage `json:"content"`
	Status  *string         `json:"status" binding:"omitempty,oneof=draft published"`
}
