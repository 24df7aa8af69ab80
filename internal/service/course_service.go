package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
	"golang.org/x/sync/errgroup"
)

// CourseService implements course CRUD and the cascading delete.
type CourseService struct {
	courses     CourseStore
	modules     ModuleStore
	quizzes     QuizStore
	assignments AssignmentStore
	guard       *access.Guard
	audit       Recorder
	log         zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(
	courses CourseStore,
	modules ModuleStore,
	quizzes QuizStore,
	assignments AssignmentStore,
	guard *access.Guard,
	audit Recorder,
	log zerolog.Logger,
) *CourseService {
	return &CourseService{
		courses:     courses,
		modules:     modules,
		quizzes:     quizzes,
		assignments: assignments,
		guard:       guard,
		audit:       audit,
		log:         log.With().Str("component", "course_service").Logger(),
	}
}

// List returns the courses visible to p: instructors see their own, HR
// Admins see everything and learners see active courses.
func (s *CourseService) List(ctx context.Context, p model.Principal, query string, page, perPage int) ([]model.Course, int, error) {
	page, perPage = NormalizePage(page, perPage)

	filter := model.CourseFilter{Query: strings.TrimSpace(query)}
	if len(filter.Query) > MaxSearchLength {
		return nil, 0, apperror.InvalidInput("search query must be at most %d characters", MaxSearchLength)
	}
	switch p.Role {
	case model.RoleInstructor:
		filter.InstructorID = &p.UserID
	case model.RoleHRAdmin:
	default:
		filter.Status = ptr(model.CourseStatusActive)
	}

	courses, total, err := s.courses.List(ctx, filter, perPage, offsetOf(page, perPage))
	if err != nil {
		return nil, 0, apperror.Internal("list courses", err)
	}
	return courses, total, nil
}

// Get returns a course with its modules, quizzes and assignments. Correct
// answers are stripped unless p may review the course's content.
func (s *CourseService) Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.CourseDetail, error) {
	course, err := loadCourse(ctx, s.courses, id)
	if err != nil {
		return nil, err
	}

	reviewer := s.guard.Allowed(p, access.ContentReview, access.Course(course))
	if !reviewer && course.Status != model.CourseStatusActive {
		return nil, apperror.NotFound("course not found")
	}

	detail := &model.CourseDetail{Course: *course}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		detail.Modules, err = s.modules.ListByCourse(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		detail.Quizzes, err = s.quizzes.ListByCourse(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		detail.Assignments, err = s.assignments.ListByCourse(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal("load course content", err)
	}

	if !reviewer {
		for i := range detail.Quizzes {
			detail.Quizzes[i] = detail.Quizzes[i].Redacted()
		}
	}
	return detail, nil
}

// Create adds a course owned by p.
func (s *CourseService) Create(ctx context.Context, p model.Principal, req *model.CreateCourseRequest) (*model.Course, error) {
	if err := s.guard.Authorize(p, access.CourseCreate, access.Resource{}); err != nil {
		return nil, err
	}
	if err := checkDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	c := &model.Course{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		InstructorID: p.UserID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Status:       model.CourseStatusActive,
	}
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, apperror.Internal("create course", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionCourseCreated, &c.ID, map[string]any{
		"course_title": c.Title,
	}))
	return c, nil
}

// Update applies the non-nil fields of req. Archiving is an update of status.
func (s *CourseService) Update(ctx context.Context, p model.Principal, id uuid.UUID, req *model.UpdateCourseRequest) (*model.Course, error) {
	c, err := loadCourse(ctx, s.courses, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(p, access.CourseUpdate, access.Course(c)); err != nil {
		return nil, err
	}

	changed := []string{}
	if req.Title != nil {
		c.Title = strings.TrimSpace(*req.Title)
		changed = append(changed, "title")
	}
	if req.Description != nil {
		c.Description = *req.Description
		changed = append(changed, "description")
	}
	if req.StartDate != nil {
		c.StartDate = req.StartDate
		changed = append(changed, "start_date")
	}
	if req.EndDate != nil {
		c.EndDate = req.EndDate
		changed = append(changed, "end_date")
	}
	if req.Status != nil {
		c.Status = model.CourseStatus(*req.Status)
		changed = append(changed, "status")
	}
	if err := checkDates(c.StartDate, c.EndDate); err != nil {
		return nil, err
	}

	if err := s.courses.Update(ctx, c); err != nil {
		return nil, storeErr("update course", "course", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionCourseUpdated, &c.ID, map[string]any{
		"course_title": c.Title,
		"fields":       changed,
	}))
	return c, nil
}

// Delete removes a course with all of its content, enrollments and
// submissions in one transaction.
func (s *CourseService) Delete(ctx context.Context, p model.Principal, id uuid.UUID) (*model.CourseCascade, error) {
	c, err := loadCourse(ctx, s.courses, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(p, access.CourseDelete, access.Course(c)); err != nil {
		return nil, err
	}

	removed, err := s.courses.DeleteCascade(ctx, id)
	if err != nil {
		return nil, storeErr("delete course", "course", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionCourseDeleted, &c.ID, map[string]any{
		"course_title": c.Title,
		"removed":      removed,
	}))
	s.log.Info().
		Str("course_id", id.String()).
		Int64("enrollments", removed.Enrollments).
		Msg("course deleted")
	return removed, nil
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return apperror.InvalidInput("end_date must be after start_date")
	}
	return nil
}
