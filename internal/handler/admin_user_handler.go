package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

type AdminUserHandler struct {
	service *service.UserService
}

func NewAdminUserHandler(service *service.UserService) *AdminUserHandler {
	return &AdminUserHandler{service: service}
}

// ListUsers godoc
// GET /api/v1/admin/users?status=&role=&page=&per_page=
func (h *AdminUserHandler) ListUsers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var filter model.UserFilter
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		status := model.UserStatus(strings.ToLower(s))
		filter.Status = &status
	}
	if r := strings.TrimSpace(c.Query("role")); r != "" {
		role := model.Role(r)
		if !role.Valid() {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"role": "role must be one of Instructor, Participant, HR Admin, Manager",
			})
			return
		}
		filter.Role = &role
	}

	page, perPage := pageQuery(c)
	users, total, err := h.service.List(c.Request.Context(), p, filter, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, emptyIfNil(users), response.NewPagination(page, perPage, total))
}

// ApproveUser godoc
// POST /api/v1/admin/users/:id/approve
func (h *AdminUserHandler) ApproveUser(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// RejectUser godoc
// POST /api/v1/admin/users/:id/reject
func (h *AdminUserHandler) RejectUser(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

// SuspendUser godoc
// POST /api/v1/admin/users/:id/suspend
func (h *AdminUserHandler) SuspendUser(c *gin.Context) {
	h.transition(c, h.service.Suspend)
}

// DeleteUser godoc
// DELETE /api/v1/admin/users/:id
func (h *AdminUserHandler) DeleteUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "user deleted successfully"})
}

type statusChange func(ctx context.Context, p model.Principal, id uuid.UUID) (*model.User, error)

func (h *AdminUserHandler) transition(c *gin.Context, change statusChange) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := change(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}
