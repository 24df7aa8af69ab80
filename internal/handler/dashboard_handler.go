package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

// DashboardHandler handles the platform dashboard endpoint.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Get godoc
// GET /api/v1/dashboard
// Returns platform counters and the most enrolled courses.
func (h *DashboardHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	data, err := h.dashboardService.Get(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}
