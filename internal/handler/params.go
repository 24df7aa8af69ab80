package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/middleware"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

// principal fetches the authenticated caller, writing 401 when absent.
func principal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return p, ok
}

// uuidParam parses the named path parameter, writing 400 when malformed.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// uuidParams parses several path parameters in order.
func uuidParams(c *gin.Context, names ...string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		id, ok := uuidParam(c, name)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// pageQuery reads ?page= and ?per_page=, clamped to the service limits.
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(service.DefaultPerPage)))
	return service.NormalizePage(page, perPage)
}

// emptyIfNil keeps JSON list fields as [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
