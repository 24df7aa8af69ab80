package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// ModuleService manages the ordered modules of a course.
type ModuleService struct {
	courses CourseStore
	modules ModuleStore
	guard   *access.Guard
	audit   Recorder
	log     zerolog.Logger
}

// NewModuleService creates a new ModuleService.
func NewModuleService(courses CourseStore, modules ModuleStore, guard *access.Guard, audit Recorder, log zerolog.Logger) *ModuleService {
	return &ModuleService{
		courses: courses,
		modules: modules,
		guard:   guard,
		audit:   audit,
		log:     log.With().Str("component", "module_service").Logger(),
	}
}

// List returns the course's modules ordered by (order, created_at).
func (s *ModuleService) List(ctx context.Context, p model.Principal, courseID uuid.UUID) ([]model.Module, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CourseStatusActive && !s.guard.Allowed(p, access.ContentReview, access.Course(course)) {
		return nil, apperror.NotFound("course not found")
	}

	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, apperror.Internal("list modules", err)
	}
	return modules, nil
}

// Create adds a module to a course owned by p.
func (s *ModuleService) Create(ctx context.Context, p model.Principal, courseID uuid.UUID, req *model.CreateModuleRequest) (*model.Module, error) {
	if _, err := s.authorizeWrite(ctx, p, courseID); err != nil {
		return nil, err
	}
	content, err := moduleContent(req.Content)
	if err != nil {
		return nil, err
	}

	m := &model.Module{
		CourseID: courseID,
		Title:    strings.TrimSpace(req.Title),
		Order:    req.Order,
		Content:  content,
		Status:   model.ModuleStatusPublished,
	}
	if req.Status != "" {
		m.Status = model.ModuleStatus(req.Status)
	}
	if err := s.modules.Create(ctx, m); err != nil {
		return nil, apperror.Internal("create module", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionModuleCreated, &courseID, map[string]any{
		"module_id": m.ID,
		"title":     m.Title,
		"order":     m.Order,
	}))
	return m, nil
}

// Update applies the non-nil fields of req to a module.
func (s *ModuleService) Update(ctx context.Context, p model.Principal, courseID, moduleID uuid.UUID, req *model.UpdateModuleRequest) (*model.Module, error) {
	if _, err := s.authorizeWrite(ctx, p, courseID); err != nil {
		return nil, err
	}
	m, err := s.load(ctx, courseID, moduleID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.Order != nil {
		m.Order = *req.Order
	}
	if len(req.Content) > 0 {
		if m.Content, err = moduleContent(req.Content); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		m.Status = model.ModuleStatus(*req.Status)
	}

	if err := s.modules.Update(ctx, m); err != nil {
		return nil, storeErr("update module", "module", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionModuleUpdated, &courseID, map[string]any{
		"module_id": m.ID,
		"title":     m.Title,
	}))
	return m, nil
}

// Delete removes a module and strips it from every enrollment's completed list.
func (s *ModuleService) Delete(ctx context.Context, p model.Principal, courseID, moduleID uuid.UUID) error {
	if _, err := s.authorizeWrite(ctx, p, courseID); err != nil {
		return err
	}
	m, err := s.load(ctx, courseID, moduleID)
	if err != nil {
		return err
	}

	if err := s.modules.Delete(ctx, courseID, moduleID); err != nil {
		return storeErr("delete module", "module", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionModuleDeleted, &courseID, map[string]any{
		"module_id": m.ID,
		"title":     m.Title,
	}))
	return nil
}

func (s *ModuleService) authorizeWrite(ctx context.Context, p model.Principal, courseID uuid.UUID) (*model.Course, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(p, access.ContentWrite, access.Course(course)); err != nil {
		return nil, err
	}
	return course, nil
}

// load fetches a module and checks it belongs to courseID.
func (s *ModuleService) load(ctx context.Context, courseID, moduleID uuid.UUID) (*model.Module, error) {
	m, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		return nil, storeErr("load module", "module", err)
	}
	if m.CourseID != courseID {
		return nil, apperror.NotFound("module not found")
	}
	return m, nil
}

// moduleContent requires content to be a JSON object, defaulting to {}.
func moduleContent(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage(`{}`), nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, apperror.InvalidInput("content must be a JSON object")
	}
	return raw, nil
}
