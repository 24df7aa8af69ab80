package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/validator"
)

// CourseHandler serves course CRUD and course-level reports.
type CourseHandler struct {
	courseService     *service.CourseService
	enrollmentService *service.EnrollmentService
}

func NewCourseHandler(courseService *service.CourseService, enrollmentService *service.EnrollmentService) *CourseHandler {
	return &CourseHandler{
		courseService:     courseService,
		enrollmentService: enrollmentService,
	}
}

// List godoc
// GET /api/v1/courses?q=&page=&per_page=
// q searches title and description.
func (h *CourseHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	page, perPage := pageQuery(c)
	courses, total, err := h.courseService.List(c.Request.Context(), p, c.Query("q"), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, emptyIfNil(courses), response.NewPagination(page, perPage, total))
}

// Get godoc
// GET /api/v1/courses/:course_id
// Returns the course with its ordered modules, quizzes and assignments.
func (h *CourseHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	detail, err := h.courseService.Get(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// Create godoc
// POST /api/v1/courses
func (h *CourseHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), p, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// Update godoc
// PATCH /api/v1/courses/:course_id
// Partial update; setting status to "archived" archives the course.
func (h *CourseHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	var req model.UpdateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courseService.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// Delete godoc
// DELETE /api/v1/courses/:course_id
// Removes the course and everything that hangs off it.
func (h *CourseHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	removed, err := h.courseService.Delete(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "course deleted successfully",
		"removed": removed,
	})
}

// Stats godoc
// GET /api/v1/courses/:course_id/stats
func (h *CourseHandler) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	stats, err := h.enrollmentService.CourseStats(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// Enrollments godoc
// GET /api/v1/courses/:course_id/enrollments?page=&per_page=
func (h *CourseHandler) Enrollments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	page, perPage := pageQuery(c)
	enrollments, total, err := h.enrollmentService.CourseEnrollments(c.Request.Context(), p, id, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, emptyIfNil(enrollments), response.NewPagination(page, perPage, total))
}
