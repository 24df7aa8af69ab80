package websocket

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing   Action = "ping"
	ActionFilter Action = "filter"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// FilterRequest narrows the live audit feed. Empty fields match everything.
type FilterRequest struct {
	Action     Action `json:"action"`
	ActionType string `json:"action_type"`
	CourseID   string `json:"course_id"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady Event = "ready"
	EventAudit Event = "audit"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// ReadyResponse confirms the subscription and echoes the active filter.
type ReadyResponse struct {
	Event  Event  `json:"event"`
	Filter Filter `json:"filter"`
}

// AuditResponse carries one freshly recorded audit entry.
type AuditResponse struct {
	Event Event           `json:"event"`
	Entry json.RawMessage `json:"entry"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// Filter selects which audit entries a subscriber receives.
type Filter struct {
	ActionType string     `json:"action_type,omitempty"`
	CourseID   *uuid.UUID `json:"course_id,omitempty"`
}

// ParseFilter validates a client filter request.
func ParseFilter(req FilterRequest) (Filter, error) {
	f := Filter{ActionType: req.ActionType}
	if req.CourseID != "" {
		id, err := uuid.Parse(req.CourseID)
		if err != nil {
			return Filter{}, err
		}
		f.CourseID = &id
	}
	return f, nil
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *model.AuditEntry) bool {
	if f.ActionType != "" && f.ActionType != e.ActionType {
		return false
	}
	if f.CourseID != nil && (e.CourseID == nil || *e.CourseID != *f.CourseID) {
		return false
	}
	return true
}
