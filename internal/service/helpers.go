package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
)

// Page bounds used by every paginated listing.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// MaxSearchLength caps free-text search queries.
const MaxSearchLength = 100

// NormalizePage clamps page to >= 1 and perPage to [1, MaxPerPage],
// substituting DefaultPerPage for zero.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage == 0:
		perPage = DefaultPerPage
	case perPage < 1:
		perPage = 1
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return page, perPage
}

func offsetOf(page, perPage int) int {
	return (page - 1) * perPage
}

// storeErr translates a repository error into an apperror. what names the
// missing record for NotFound messages.
func storeErr(op, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("%s not found", what)
	default:
		return apperror.Internal(op, err)
	}
}

func loadCourse(ctx context.Context, courses CourseStore, id uuid.UUID) (*model.Course, error) {
	c, err := courses.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load course", "course", err)
	}
	return c, nil
}

// entry builds an audit entry; details is marshalled to JSON.
func entry(actor uuid.UUID, action string, courseID *uuid.UUID, details any) model.AuditEntry {
	raw, err := json.Marshal(details)
	if err != nil || details == nil {
		raw = []byte(`{}`)
	}
	return model.AuditEntry{
		UserID:     actor,
		ActionType: action,
		CourseID:   courseID,
		Details:    raw,
	}
}

func ptr[T any](v T) *T { return &v }

// clock is overridden in tests.
type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
