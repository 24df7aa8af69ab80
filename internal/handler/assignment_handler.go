package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/validator"
)

// multipartOverhead leaves room for form boundaries and the comment field.
const multipartOverhead = 1 << 20

// AssignmentHandler serves assignment authoring and file submissions.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	enrollmentService *service.EnrollmentService
	maxUploadBytes    int64
}

func NewAssignmentHandler(assignmentService *service.AssignmentService, enrollmentService *service.EnrollmentService, maxUploadBytes int64) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		enrollmentService: enrollmentService,
		maxUploadBytes:    maxUploadBytes,
	}
}

// List godoc
// GET /api/v1/courses/:course_id/assignments
func (h *AssignmentHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	assignments, err := h.assignmentService.List(c.Request.Context(), p, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignments": emptyIfNil(assignments)})
}

// Create godoc
// POST /api/v1/courses/:course_id/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	var req model.CreateAssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), p, courseID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assignment": assignment})
}

// Delete godoc
// DELETE /api/v1/courses/:course_id/assignments/:assignment_id
func (h *AssignmentHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "assignment_id")
	if !ok {
		return
	}

	if err := h.assignmentService.Delete(c.Request.Context(), p, ids[0], ids[1]); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "assignment deleted successfully"})
}

// Submit godoc
// POST /api/v1/courses/:course_id/assignments/:assignment_id/submit
// Multipart form: "file" (required) and "comment" (optional).
func (h *AssignmentHandler) Submit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "assignment_id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}

	sub, err := h.enrollmentService.SubmitAssignment(c.Request.Context(), p, ids[0], ids[1], service.Upload{
		Body:        file,
		Size:        header.Size,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Comment:     strings.TrimSpace(c.Request.FormValue("comment")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"submission": sub})
}

// Submissions godoc
// GET /api/v1/courses/:course_id/assignments/:assignment_id/submissions?page=&per_page=
func (h *AssignmentHandler) Submissions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "assignment_id")
	if !ok {
		return
	}

	page, perPage := pageQuery(c)
	subs, total, err := h.assignmentService.Submissions(c.Request.Context(), p, ids[0], ids[1], page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, emptyIfNil(subs), response.NewPagination(page, perPage, total))
}
