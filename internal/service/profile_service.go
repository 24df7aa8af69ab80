package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// ProfileService serves account profiles to their owners and HR Admins.
type ProfileService struct {
	users       UserStore
	enrollments EnrollmentStore
	guard       *access.Guard
	audit       Recorder
	log         zerolog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(users UserStore, enrollments EnrollmentStore, guard *access.Guard, audit Recorder, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		users:       users,
		enrollments: enrollments,
		guard:       guard,
		audit:       audit,
		log:         log.With().Str("component", "profile_service").Logger(),
	}
}

// Get returns the account of userID with its enrollments.
func (s *ProfileService) Get(ctx context.Context, p model.Principal, userID uuid.UUID) (*model.UserProfile, error) {
	if err := s.guard.Authorize(p, access.ProfileRead, access.Resource{SubjectID: userID}); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr("load user", "user", err)
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("list enrollments", err)
	}
	return &model.UserProfile{User: *u, Enrollments: enrollments}, nil
}

// Update changes the caller's own display name.
func (s *ProfileService) Update(ctx context.Context, p model.Principal, req *model.UpdateProfileRequest) (*model.User, error) {
	if err := s.guard.Authorize(p, access.ProfileUpdate, access.Resource{SubjectID: p.UserID}); err != nil {
		return nil, err
	}
	if req.FirstName == nil && req.LastName == nil {
		return nil, apperror.InvalidInput("no changes provided")
	}

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("load user", "user", err)
	}

	before := map[string]any{"first_name": u.FirstName, "last_name": u.LastName}
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			return nil, apperror.InvalidInput("first_name cannot be blank")
		}
		u.FirstName = name
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, storeErr("update profile", "user", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionProfileUpdated, nil, map[string]any{
		"before": before,
		"after":  map[string]any{"first_name": u.FirstName, "last_name": u.LastName},
	}))
	return u, nil
}
