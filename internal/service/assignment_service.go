package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// AssignmentService manages course assignments and their submissions.
type AssignmentService struct {
	courses     CourseStore
	modules     ModuleStore
	assignments AssignmentStore
	submissions SubmissionStore
	guard       *access.Guard
	audit       Recorder
	log         zerolog.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	courses CourseStore,
	modules ModuleStore,
	assignments AssignmentStore,
	submissions SubmissionStore,
	guard *access.Guard,
	audit Recorder,
	log zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		courses:     courses,
		modules:     modules,
		assignments: assignments,
		submissions: submissions,
		guard:       guard,
		audit:       audit,
		log:         log.With().Str("component", "assignment_service").Logger(),
	}
}

// List returns the course's assignments.
func (s *AssignmentService) List(ctx context.Context, p model.Principal, courseID uuid.UUID) ([]model.Assignment, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CourseStatusActive && !s.guard.Allowed(p, access.ContentReview, access.Course(course)) {
		return nil, apperror.NotFound("course not found")
	}

	out, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, apperror.Internal("list assignments", err)
	}
	return out, nil
}

// Create adds an assignment, optionally attached to one of the course's modules.
func (s *AssignmentService) Create(ctx context.Context, p model.Principal, courseID uuid.UUID, req *model.CreateAssignmentRequest) (*model.Assignment, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(p, access.ContentWrite, access.Course(course)); err != nil {
		return nil, err
	}

	a := &model.Assignment{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		Points:      req.Points,
	}
	if req.ModuleID != nil {
		moduleID, err := uuid.Parse(*req.ModuleID)
		if err != nil {
			return nil, apperror.InvalidInput("module_id must be a valid UUID")
		}
		m, err := s.modules.GetByID(ctx, moduleID)
		if err != nil {
			return nil, storeErr("load module", "module", err)
		}
		if m.CourseID != courseID {
			return nil, apperror.InvalidInput("module does not belong to this course")
		}
		a.ModuleID = &moduleID
	}

	if err := s.assignments.Create(ctx, a); err != nil {
		return nil, apperror.Internal("create assignment", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionAssignmentCreated, &courseID, map[string]any{
		"assignment_id": a.ID,
		"title":         a.Title,
	}))
	return a, nil
}

// Delete removes an assignment, its submissions and its submission summaries.
func (s *AssignmentService) Delete(ctx context.Context, p model.Principal, courseID, assignmentID uuid.UUID) error {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(p, access.ContentWrite, access.Course(course)); err != nil {
		return err
	}
	a, err := loadAssignment(ctx, s.assignments, courseID, assignmentID)
	if err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, courseID, assignmentID); err != nil {
		return storeErr("delete assignment", "assignment", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionAssignmentDeleted, &courseID, map[string]any{
		"assignment_id": a.ID,
		"title":         a.Title,
	}))
	return nil
}

// Submissions returns a page of submissions for review.
func (s *AssignmentService) Submissions(ctx context.Context, p model.Principal, courseID, assignmentID uuid.UUID, page, perPage int) ([]model.AssignmentSubmission, int, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.guard.Authorize(p, access.ContentReview, access.Course(course)); err != nil {
		return nil, 0, err
	}
	if _, err := loadAssignment(ctx, s.assignments, courseID, assignmentID); err != nil {
		return nil, 0, err
	}

	page, perPage = NormalizePage(page, perPage)
	subs, total, err := s.submissions.ListAssignmentSubmissions(ctx, assignmentID, perPage, offsetOf(page, perPage))
	if err != nil {
		return nil, 0, apperror.Internal("list assignment submissions", err)
	}
	return subs, total, nil
}

func loadAssignment(ctx context.Context, assignments AssignmentStore, courseID, assignmentID uuid.UUID) (*model.Assignment, error) {
	a, err := assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, storeErr("load assignment", "assignment", err)
	}
	if a.CourseID != courseID {
		return nil, apperror.NotFound("assignment not found")
	}
	return a, nil
}
