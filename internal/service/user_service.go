package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
)

// PrincipalCache drops cached account state after an administrative change.
type PrincipalCache interface {
	InvalidatePrincipal(ctx context.Context, userID uuid.UUID)
}

// UserService implements HR Admin account administration.
type UserService struct {
	users UserStore
	cache PrincipalCache
	guard *access.Guard
	audit Recorder
	log   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, cache PrincipalCache, guard *access.Guard, audit Recorder, log zerolog.Logger) *UserService {
	return &UserService{
		users: users,
		cache: cache,
		guard: guard,
		audit: audit,
		log:   log.With().Str("component", "user_service").Logger(),
	}
}

// List returns a page of accounts matching filter.
func (s *UserService) List(ctx context.Context, p model.Principal, filter model.UserFilter, page, perPage int) ([]model.User, int, error) {
	if err := s.guard.Authorize(p, access.UserManage, access.Resource{}); err != nil {
		return nil, 0, err
	}
	page, perPage = NormalizePage(page, perPage)

	users, total, err := s.users.List(ctx, filter, perPage, offsetOf(page, perPage))
	if err != nil {
		return nil, 0, apperror.Internal("list users", err)
	}
	return users, total, nil
}

// Approve moves a pending, rejected or suspended account to approved.
func (s *UserService) Approve(ctx context.Context, p model.Principal, id uuid.UUID) (*model.User, error) {
	return s.transition(ctx, p, id, model.UserStatusApproved, model.ActionUserApproved, func(u *model.User) error {
		if u.Status == model.UserStatusApproved {
			return apperror.PolicyViolation("user is already approved")
		}
		return nil
	})
}

// Reject declines a pending registration.
func (s *UserService) Reject(ctx context.Context, p model.Principal, id uuid.UUID) (*model.User, error) {
	return s.transition(ctx, p, id, model.UserStatusRejected, model.ActionUserRejected, func(u *model.User) error {
		if u.Status != model.UserStatusPending {
			return apperror.PolicyViolation("only pending users can be rejected")
		}
		return nil
	})
}

// Suspend blocks an approved account. Outstanding tokens stop working once
// the cached status is dropped.
func (s *UserService) Suspend(ctx context.Context, p model.Principal, id uuid.UUID) (*model.User, error) {
	return s.transition(ctx, p, id, model.UserStatusSuspended, model.ActionUserSuspended, func(u *model.User) error {
		if u.ID == p.UserID {
			return apperror.PolicyViolation("you cannot suspend your own account")
		}
		if u.Status != model.UserStatusApproved {
			return apperror.PolicyViolation("only approved users can be suspended")
		}
		return nil
	})
}

// Delete removes an account together with its enrollments and submissions.
func (s *UserService) Delete(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if err := s.guard.Authorize(p, access.UserManage, access.Resource{}); err != nil {
		return err
	}
	if id == p.UserID {
		return apperror.PolicyViolation("you cannot delete your own account")
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeErr("load user", "user", err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrHasDependents):
			return apperror.Conflict("user still owns courses; delete or reassign them first")
		default:
			return storeErr("delete user", "user", err)
		}
	}
	s.cache.InvalidatePrincipal(ctx, id)

	s.audit.Record(ctx, entry(p.UserID, model.ActionUserDeleted, nil, map[string]any{
		"target_user_id": u.ID,
		"email":          u.Email,
		"role":           u.Role,
	}))
	s.log.Info().Str("user_id", id.String()).Str("by", p.UserID.String()).Msg("user deleted")
	return nil
}

func (s *UserService) transition(ctx context.Context, p model.Principal, id uuid.UUID, to model.UserStatus, action string, check func(*model.User) error) (*model.User, error) {
	if err := s.guard.Authorize(p, access.UserManage, access.Resource{}); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load user", "user", err)
	}
	if err := check(u); err != nil {
		return nil, err
	}

	from := u.Status
	if err := s.users.UpdateStatus(ctx, id, to); err != nil {
		return nil, storeErr("update user status", "user", err)
	}
	u.Status = to
	s.cache.InvalidatePrincipal(ctx, id)

	s.audit.Record(ctx, entry(p.UserID, action, nil, map[string]any{
		"target_user_id": u.ID,
		"email":          u.Email,
		"from":           from,
		"to":             to,
	}))
	return u, nil
}
