package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/validator"
)

// ProfileHandler handles account profile endpoints.
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Mine godoc
// GET /api/v1/profile
// Returns the caller's account with its enrollments.
func (h *ProfileHandler) Mine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	h.show(c, p, p.UserID)
}

// Get godoc
// GET /api/v1/users/:user_id/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	h.show(c, p, userID)
}

func (h *ProfileHandler) show(c *gin.Context, p model.Principal, userID uuid.UUID) {
	profile, err := h.profileService.Get(c.Request.Context(), p, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}

// Update godoc
// PATCH /api/v1/profile
// Changes the caller's first and last name.
func (h *ProfileHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.profileService.Update(c.Request.Context(), p, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}
