package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/validator"
)

// QuizHandler serves quiz authoring, review and submission.
type QuizHandler struct {
	quizService       *service.QuizService
	enrollmentService *service.EnrollmentService
}

func NewQuizHandler(quizService *service.QuizService, enrollmentService *service.EnrollmentService) *QuizHandler {
	return &QuizHandler{
		quizService:       quizService,
		enrollmentService: enrollmentService,
	}
}

// List godoc
// GET /api/v1/courses/:course_id/quizzes
// Correct answers are stripped for callers who cannot review the course.
func (h *QuizHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	quizzes, err := h.quizService.List(c.Request.Context(), p, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": emptyIfNil(quizzes)})
}

// Get godoc
// GET /api/v1/courses/:course_id/quizzes/:quiz_id
func (h *QuizHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "quiz_id")
	if !ok {
		return
	}

	quiz, err := h.quizService.Get(c.Request.Context(), p, ids[0], ids[1])
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// Create godoc
// POST /api/v1/courses/:course_id/quizzes
func (h *QuizHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), p, courseID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// Delete godoc
// DELETE /api/v1/courses/:course_id/quizzes/:quiz_id
func (h *QuizHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "quiz_id")
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), p, ids[0], ids[1]); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "quiz deleted successfully"})
}

// Submit godoc
// POST /api/v1/courses/:course_id/quizzes/:quiz_id/submit
// Body: {"answers": {"<question_id>": <string|bool|number>}}
func (h *QuizHandler) Submit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "quiz_id")
	if !ok {
		return
	}

	var req model.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, validator.TranslateErrors(err))
		return
	}

	sub, err := h.enrollmentService.SubmitQuiz(c.Request.Context(), p, ids[0], ids[1], &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"submission": sub})
}

// Submissions godoc
// GET /api/v1/courses/:course_id/quizzes/:quiz_id/submissions?page=&per_page=
func (h *QuizHandler) Submissions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "quiz_id")
	if !ok {
		return
	}

	page, perPage := pageQuery(c)
	subs, total, err := h.quizService.Submissions(c.Request.Context(), p, ids[0], ids[1], page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, emptyIfNil(subs), response.NewPagination(page, perPage, total))
}

// MySubmissions godoc
// GET /api/v1/courses/:course_id/quizzes/:quiz_id/submissions/me
func (h *QuizHandler) MySubmissions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "quiz_id")
	if !ok {
		return
	}

	subs, err := h.quizService.MySubmissions(c.Request.Context(), p, ids[0], ids[1])
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": emptyIfNil(subs)})
}
