package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

type AuditHandler struct {
	auditService *service.AuditService
}

func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// Trail godoc
// GET /api/v1/audit-trail?action_type=&user_role=&page=&per_page=
// page and per_page are clamped rather than rejected.
func (h *AuditHandler) Trail(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	page, perPage := pageQuery(c)

	result, err := h.auditService.Trail(c.Request.Context(), p, c.Query("action_type"), c.Query("user_role"), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// CourseLog godoc
// GET /api/v1/courses/:course_id/audit-log?page=&per_page=
func (h *AuditHandler) CourseLog(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	page, perPage := pageQuery(c)

	result, err := h.auditService.CourseLog(c.Request.Context(), p, courseID, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
