package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/validator"
)

type ModuleHandler struct {
	moduleService *service.ModuleService
}

func NewModuleHandler(moduleService *service.ModuleService) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService}
}

// List godoc
// GET /api/v1/courses/:course_id/modules
func (h *ModuleHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	modules, err := h.moduleService.List(c.Request.Context(), p, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"modules": emptyIfNil(modules)})
}

// Create godoc
// POST /api/v1/courses/:course_id/modules
func (h *ModuleHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}

	var req model.CreateModuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	module, err := h.moduleService.Create(c.Request.Context(), p, courseID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"module": module})
}

// Update godoc
// PATCH /api/v1/courses/:course_id/modules/:module_id
func (h *ModuleHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "module_id")
	if !ok {
		return
	}

	var req model.UpdateModuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	module, err := h.moduleService.Update(c.Request.Context(), p, ids[0], ids[1], &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"module": module})
}

// Delete godoc
// DELETE /api/v1/courses/:course_id/modules/:module_id
func (h *ModuleHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, ok := uuidParams(c, "course_id", "module_id")
	if !ok {
		return
	}

	if err := h.moduleService.Delete(c.Request.Context(), p, ids[0], ids[1]); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "module deleted successfully"})
}
