package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/apperror"
)

// Response is the standardized API response envelope.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody represents a structured error response.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination holds pagination information.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Metadata includes request tracing and timing.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ────────────────────────────────────────────────────────────────────────────
// Helper builders
// ────────────────────────────────────────────────────────────────────────────

// Success sends a successful JSON response with the given status code and data.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Data:     data,
		Metadata: buildMetadata(c),
	})
}

// SuccessWithPagination sends a successful response with pagination metadata.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	c.JSON(statusCode, Response{
		Data:       data,
		Pagination: pagination,
		Metadata:   buildMetadata(c),
	})
}

// Fail sends an error response with an error code and no field-level details.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, Response{
		Data:     nil,
		Error:    &ErrorBody{Code: code, Message: GetMessage(code)},
		Metadata: buildMetadata(c),
	})
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, Response{
		Data:     nil,
		Error:    &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields},
		Metadata: buildMetadata(c),
	})
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, Response{
		Data:     nil,
		Error:    &ErrorBody{Code: code, Message: GetMessage(code)},
		Metadata: buildMetadata(c),
	})
}

// Error translates a service error into the matching status and code. The
// typed message is shown to the caller; internal causes are logged and never
// leave the server.
func Error(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status, code := statusFor(kind)

	if kind == apperror.KindInternal {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
		Fail(c, status, code)
		return
	}

	msg := apperror.MessageOf(err)
	if msg == "" {
		msg = GetMessage(code)
	}
	c.JSON(status, Response{
		Data:     nil,
		Error:    &ErrorBody{Code: code, Message: msg},
		Metadata: buildMetadata(c),
	})
}

// AbortError is Error for middleware: it stops the handler chain.
func AbortError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// NewPagination computes page counts for a listing.
func NewPagination(page, perPage, total int) *Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return &Pagination{Page: page, PerPage: perPage, TotalItems: total, TotalPages: totalPages}
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func buildMetadata(c *gin.Context) Metadata {
	reqID, _ := c.Get(ContextKeyRequestID)
	id, ok := reqID.(string)
	if !ok || id == "" {
		id = uuid.New().String() // Fallback if middleware not applied
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func statusFor(kind apperror.Kind) (int, ErrCode) {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound, ErrNotFound
	case apperror.KindUnauthenticated:
		return http.StatusUnauthorized, ErrUnauthenticated
	case apperror.KindUnauthorized:
		return http.StatusForbidden, ErrForbidden
	case apperror.KindInvalidInput:
		return http.StatusBadRequest, ErrInvalidPayload
	case apperror.KindDuplicateEnrollment:
		return http.StatusConflict, ErrDuplicateEnrollment
	case apperror.KindPolicyViolation:
		return http.StatusUnprocessableEntity, ErrPolicyViolation
	case apperror.KindConflict:
		return http.StatusConflict, ErrConflict
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}
