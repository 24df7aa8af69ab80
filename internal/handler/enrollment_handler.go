package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

// EnrollmentHandler serves the learner progress operations.
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

// Enroll godoc
// POST /api/v1/courses/:course_id/enroll
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), p, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"enrollment": enrollment})
}

// CompleteModule godoc
// POST /api/v1/courses/:course_id/modules/:module_id/complete
func (h *EnrollmentHandler) CompleteModule(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "module_id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.CompleteModule(c.Request.Context(), p, ids[0], ids[1])
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollment": enrollment})
}

// CompleteSelf godoc
// POST /api/v1/courses/:course_id/complete
func (h *EnrollmentHandler) CompleteSelf(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	h.markComplete(c, p.UserID)
}

// CompleteStudent godoc
// POST /api/v1/courses/:course_id/students/:student_id/complete
// Owning instructor marks a learner's enrollment completed.
func (h *EnrollmentHandler) CompleteStudent(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	h.markComplete(c, studentID)
}

// MyProgress godoc
// GET /api/v1/courses/:course_id/progress
func (h *EnrollmentHandler) MyProgress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	h.progress(c, p.UserID)
}

// StudentProgress godoc
// GET /api/v1/courses/:course_id/students/:student_id/progress
func (h *EnrollmentHandler) StudentProgress(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	h.progress(c, studentID)
}

// MyEnrollments godoc
// GET /api/v1/me/enrollments
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	enrollments, err := h.enrollmentService.MyEnrollments(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollments": emptyIfNil(enrollments)})
}

func (h *EnrollmentHandler) markComplete(c *gin.Context, studentID uuid.UUID) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.MarkComplete(c.Request.Context(), p, courseID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollment": enrollment})
}

func (h *EnrollmentHandler) progress(c *gin.Context, studentID uuid.UUID) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	progress, err := h.enrollmentService.Progress(c.Request.Context(), p, courseID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, progress)
}
