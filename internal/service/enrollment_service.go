package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/grading"
	"github.com/stemsi/coursehub-backend/internal/metrics"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
	"github.com/stemsi/coursehub-backend/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Upload is an assignment file handed over by the transport layer.
type Upload struct {
	Body        io.Reader
	Size        int64
	FileName    string
	ContentType string
	Comment     string
}

// EnrollmentService is the progress aggregator: it owns every write to an
// enrollment and keeps its progress consistent with the live module set.
type EnrollmentService struct {
	courses     CourseStore
	modules     ModuleStore
	quizzes     QuizStore
	assignments AssignmentStore
	enrollments EnrollmentStore
	files       storage.Provider
	guard       *access.Guard
	audit       Recorder
	maxRetries  int
	log         zerolog.Logger
	now         clock
}

// NewEnrollmentService creates a new EnrollmentService. maxRetries bounds
// how often a mutation is re-applied after losing a version race.
func NewEnrollmentService(
	courses CourseStore,
	modules ModuleStore,
	quizzes QuizStore,
	assignments AssignmentStore,
	enrollments EnrollmentStore,
	files storage.Provider,
	guard *access.Guard,
	audit Recorder,
	maxRetries int,
	log zerolog.Logger,
) *EnrollmentService {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &EnrollmentService{
		courses:     courses,
		modules:     modules,
		quizzes:     quizzes,
		assignments: assignments,
		enrollments: enrollments,
		files:       files,
		guard:       guard,
		audit:       audit,
		maxRetries:  maxRetries,
		log:         log.With().Str("component", "enrollment_service").Logger(),
		now:         systemClock,
	}
}

// ─── Enrollment ─────────────────────────────────────────────────────────────

// Enroll creates the principal's enrollment in an active course.
func (s *EnrollmentService) Enroll(ctx context.Context, p model.Principal, courseID uuid.UUID) (*model.Enrollment, error) {
	if err := s.guard.Authorize(p, access.CourseEnroll, access.Resource{}); err != nil {
		return nil, err
	}
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CourseStatusActive {
		return nil, apperror.PolicyViolation("course is not open for enrollment")
	}

	e := model.NewEnrollment(p.UserID, courseID, s.now())
	if err := s.enrollments.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.DuplicateEnrollment("already enrolled in this course")
		}
		return nil, apperror.Internal("create enrollment", err)
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionCourseEnrolled, &courseID, map[string]any{
		"course_title":  course.Title,
		"enrollment_id": e.ID,
	}))
	return e, nil
}

// ─── Learning events ────────────────────────────────────────────────────────

// CompleteModule adds a module to the principal's completed list. Completing
// the same module again changes nothing but last_accessed.
func (s *EnrollmentService) CompleteModule(ctx context.Context, p model.Principal, courseID, moduleID uuid.UUID) (*model.Enrollment, error) {
	if _, err := s.learnable(ctx, p, courseID); err != nil {
		return nil, err
	}
	m, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		return nil, storeErr("load module", "module", err)
	}
	if m.CourseID != courseID {
		return nil, apperror.NotFound("module not found")
	}

	var added bool
	e, err := s.mutate(ctx, p.UserID, courseID,
		func(e *model.Enrollment, now time.Time) error {
			added = e.CompleteModule(moduleID, now)
			return nil
		},
		s.enrollments.Update,
	)
	if err != nil {
		return nil, err
	}

	if added {
		s.audit.Record(ctx, entry(p.UserID, model.ActionModuleCompleted, &courseID, map[string]any{
			"module_id":    moduleID,
			"module_title": m.Title,
			"progress":     e.Progress,
		}))
	}
	return e, nil
}

// SubmitQuiz grades an answer set and stores it as the principal's next
// attempt. The submission and the enrollment update commit together.
func (s *EnrollmentService) SubmitQuiz(ctx context.Context, p model.Principal, courseID, quizID uuid.UUID, req *model.SubmitQuizRequest) (*model.QuizSubmission, error) {
	if _, err := s.learnable(ctx, p, courseID); err != nil {
		return nil, err
	}
	quiz, err := loadQuiz(ctx, s.quizzes, courseID, quizID)
	if err != nil {
		return nil, err
	}

	// Exhausted attempts are refused before any grading. The check repeats
	// inside mutate to catch a concurrent submission.
	current, err := s.enrollments.Get(ctx, p.UserID, courseID)
	if err != nil {
		return nil, enrollmentErr(err)
	}
	if err := attemptCap(quiz, current.NextQuizAttempt(quizID)); err != nil {
		return nil, err
	}

	answers, err := grading.ParseAnswers(req.Answers)
	if err != nil {
		return nil, err
	}

	result := grading.GradeSubmission(quiz, answers)
	sub := &model.QuizSubmission{
		ID:             uuid.New(),
		QuizID:         quizID,
		CourseID:       courseID,
		StudentID:      p.UserID,
		Answers:        answers,
		Feedback:       result.Feedback,
		PointsPossible: result.PointsPossible,
		PointsScored:   result.PointsScored,
		Score:          result.Score,
		Status:         result.Status,
		Passed:         result.Passed,
	}

	_, err = s.mutate(ctx, p.UserID, courseID,
		func(e *model.Enrollment, now time.Time) error {
			attempt := e.NextQuizAttempt(quizID)
			if err := attemptCap(quiz, attempt); err != nil {
				return err
			}
			sub.AttemptNumber = attempt
			sub.SubmittedAt = now
			e.RecordQuizAttempt(quizID, model.QuizAttemptSummary{
				SubmissionID:  sub.ID,
				AttemptNumber: attempt,
				Score:         sub.Score,
				Status:        sub.Status,
				Passed:        sub.Passed,
				SubmittedAt:   sub.SubmittedAt,
			}, sub.SubmittedAt)
			return nil
		},
		func(ctx context.Context, e *model.Enrollment) error {
			return s.enrollments.RecordQuizSubmission(ctx, sub, e)
		},
	)
	if err != nil {
		return nil, err
	}

	metrics.QuizSubmissions.WithLabelValues(string(sub.Status)).Inc()
	s.audit.Record(ctx, entry(p.UserID, model.ActionQuizSubmitted, &courseID, map[string]any{
		"quiz_id":        quizID,
		"quiz_title":     quiz.Title,
		"submission_id":  sub.ID,
		"attempt_number": sub.AttemptNumber,
		"score":          sub.Score,
		"status":         sub.Status,
	}))
	return sub, nil
}

// SubmitAssignment stores the uploaded file and records it as the
// principal's latest submission. Submissions after the due date are late.
func (s *EnrollmentService) SubmitAssignment(ctx context.Context, p model.Principal, courseID, assignmentID uuid.UUID, up Upload) (*model.AssignmentSubmission, error) {
	if _, err := s.learnable(ctx, p, courseID); err != nil {
		return nil, err
	}
	a, err := loadAssignment(ctx, s.assignments, courseID, assignmentID)
	if err != nil {
		return nil, err
	}
	if up.Body == nil || up.Size <= 0 {
		return nil, apperror.InvalidInput("a non-empty file is required")
	}
	// Fail before uploading when there is nothing to attach the file to.
	if _, err := s.enrollments.Get(ctx, p.UserID, courseID); err != nil {
		return nil, enrollmentErr(err)
	}

	sub := &model.AssignmentSubmission{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		CourseID:     courseID,
		StudentID:    p.UserID,
		FileName:     path.Base(strings.ReplaceAll(up.FileName, "\\", "/")),
		Comment:      up.Comment,
	}

	key := fmt.Sprintf("assignments/%s/%s/%s-%s", assignmentID, p.UserID, sub.ID, sub.FileName)
	sub.FileRef, err = s.files.Put(ctx, key, up.Body, up.Size, up.ContentType)
	if err != nil {
		return nil, apperror.Internal("store assignment file", err)
	}

	_, err = s.mutate(ctx, p.UserID, courseID,
		func(e *model.Enrollment, now time.Time) error {
			sub.SubmittedAt = now
			sub.Status = model.AssignmentSubmitted
			if a.DueDate != nil && sub.SubmittedAt.After(*a.DueDate) {
				sub.Status = model.AssignmentLate
			}
			e.RecordAssignmentSubmission(assignmentID, model.AssignmentSubmissionSummary{
				SubmissionID: sub.ID,
				Status:       sub.Status,
				FileRef:      sub.FileRef,
				SubmittedAt:  sub.SubmittedAt,
			}, sub.SubmittedAt)
			return nil
		},
		func(ctx context.Context, e *model.Enrollment) error {
			return s.enrollments.RecordAssignmentSubmission(ctx, sub, e)
		},
	)
	if err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), sub.FileRef); delErr != nil {
			s.log.Warn().Err(delErr).Str("file_ref", sub.FileRef).Msg("orphaned assignment file")
		}
		return nil, err
	}

	s.audit.Record(ctx, entry(p.UserID, model.ActionAssignmentSubmitted, &courseID, map[string]any{
		"assignment_id":    assignmentID,
		"assignment_title": a.Title,
		"submission_id":    sub.ID,
		"status":           sub.Status,
	}))
	return sub, nil
}

// MarkComplete moves a student's enrollment to completed. Students may
// complete their own enrollment; the owning instructor may complete anyone's.
func (s *EnrollmentService) MarkComplete(ctx context.Context, p model.Principal, courseID, studentID uuid.UUID) (*model.Enrollment, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	res := access.Resource{CourseOwnerID: course.InstructorID, SubjectID: studentID}
	if err := s.guard.Authorize(p, access.EnrollmentComplete, res); err != nil {
		return nil, err
	}

	var changed bool
	e, err := s.mutate(ctx, studentID, courseID,
		func(e *model.Enrollment, now time.Time) error {
			changed = e.MarkCompleted(now)
			return nil
		},
		s.enrollments.Update,
	)
	if err != nil {
		return nil, err
	}

	if changed {
		s.audit.Record(ctx, entry(p.UserID, model.ActionEnrollmentCompleted, &courseID, map[string]any{
			"student_id":   studentID,
			"course_title": course.Title,
		}))
	}
	return e, nil
}

// ─── Read models ────────────────────────────────────────────────────────────

// Progress returns a student's enrollment with live course totals. Students
// read their own; reviewers of the course may read anyone's.
func (s *EnrollmentService) Progress(ctx context.Context, p model.Principal, courseID, studentID uuid.UUID) (*model.EnrollmentProgress, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if studentID != p.UserID {
		if err := s.guard.Authorize(p, access.ContentReview, access.Course(course)); err != nil {
			return nil, err
		}
	}

	e, err := s.enrollments.Get(ctx, studentID, courseID)
	if err != nil {
		return nil, enrollmentErr(err)
	}

	var (
		live        []uuid.UUID
		quizzes     int
		assignments int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		live, err = s.modules.ListIDs(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		quizzes, err = s.quizzes.CountByCourse(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.assignments.CountByCourse(gctx, courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal("load course totals", err)
	}

	// Modules may have been added since the last write.
	e.RecomputeProgress(live)

	return &model.EnrollmentProgress{
		Enrollment:       *e,
		TotalModules:     len(live),
		CompletedCount:   countLive(e.CompletedModules, live),
		TotalQuizzes:     quizzes,
		TotalAssignments: assignments,
	}, nil
}

// MyEnrollments lists the principal's enrollments with course titles.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, p model.Principal) ([]model.EnrollmentWithCourse, error) {
	out, err := s.enrollments.ListByStudent(ctx, p.UserID)
	if err != nil {
		return nil, apperror.Internal("list enrollments", err)
	}
	return out, nil
}

// CourseEnrollments returns a page of a course's enrollments for its reviewers.
func (s *EnrollmentService) CourseEnrollments(ctx context.Context, p model.Principal, courseID uuid.UUID, page, perPage int) ([]model.Enrollment, int, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.guard.Authorize(p, access.ContentReview, access.Course(course)); err != nil {
		return nil, 0, err
	}

	page, perPage = NormalizePage(page, perPage)
	out, total, err := s.enrollments.ListByCourse(ctx, courseID, perPage, offsetOf(page, perPage))
	if err != nil {
		return nil, 0, apperror.Internal("list course enrollments", err)
	}
	return out, total, nil
}

// CourseStats summarizes enrollment outcomes for a course.
func (s *EnrollmentService) CourseStats(ctx context.Context, p model.Principal, courseID uuid.UUID) (*model.CourseStats, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(p, access.CourseStats, access.Course(course)); err != nil {
		return nil, err
	}

	var (
		agg         *repository.EnrollmentAggregate
		quizzes     int
		assignments int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		agg, err = s.enrollments.Aggregate(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		quizzes, err = s.quizzes.CountByCourse(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.assignments.CountByCourse(gctx, courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal("compute course stats", err)
	}

	stats := computeCourseStats(agg, quizzes, assignments)
	return &stats, nil
}

func computeCourseStats(agg *repository.EnrollmentAggregate, quizzes, assignments int) model.CourseStats {
	if agg == nil || agg.Total == 0 {
		return model.CourseStats{}
	}
	total := float64(agg.Total)

	stats := model.CourseStats{
		TotalEnrolled:   int(agg.Total),
		AverageProgress: model.Round2(agg.ProgressSum / total),
		CompletionRate:  model.Round2(float64(agg.Completed) / total * 100),
	}
	if quizzes > 0 {
		stats.QuizCompletion = model.Round2(float64(agg.QuizzesAttempted) / (float64(quizzes) * total) * 100)
	}
	if assignments > 0 {
		stats.AssignmentCompletion = model.Round2(float64(agg.AssignmentsSubmitted) / (float64(assignments) * total) * 100)
	}
	return stats
}

// ─── Compare-and-swap loop ──────────────────────────────────────────────────

// mutate reads the enrollment, applies fn, recomputes progress against the
// live module set and persists with a version check. On a version conflict
// the whole sequence runs again from a fresh read, up to maxRetries times.
func (s *EnrollmentService) mutate(
	ctx context.Context,
	studentID, courseID uuid.UUID,
	fn func(e *model.Enrollment, now time.Time) error,
	persist func(ctx context.Context, e *model.Enrollment) error,
) (*model.Enrollment, error) {
	for attempt := 0; ; attempt++ {
		e, err := s.enrollments.Get(ctx, studentID, courseID)
		if err != nil {
			return nil, enrollmentErr(err)
		}
		if err := fn(e, s.now()); err != nil {
			return nil, err
		}

		live, err := s.modules.ListIDs(ctx, courseID)
		if err != nil {
			return nil, apperror.Internal("list course modules", err)
		}
		e.RecomputeProgress(live)

		err = persist(ctx, e)
		switch {
		case err == nil:
			return e, nil
		case errors.Is(err, repository.ErrVersionConflict):
			if attempt >= s.maxRetries {
				metrics.EnrollmentConflicts.WithLabelValues("exhausted").Inc()
				s.log.Warn().
					Str("student_id", studentID.String()).
					Str("course_id", courseID.String()).
					Int("attempts", attempt+1).
					Msg("enrollment update gave up after repeated version conflicts")
				return nil, apperror.Conflict("enrollment was modified concurrently, please retry")
			}
			metrics.EnrollmentConflicts.WithLabelValues("retried").Inc()
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.Conflict("this attempt was already submitted")
		default:
			return nil, apperror.Internal("save enrollment", err)
		}
	}
}

// learnable checks p may perform learning actions in an active course.
func (s *EnrollmentService) learnable(ctx context.Context, p model.Principal, courseID uuid.UUID) (*model.Course, error) {
	if err := s.guard.Authorize(p, access.CourseLearn, access.Resource{}); err != nil {
		return nil, err
	}
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CourseStatusActive {
		return nil, apperror.PolicyViolation("course is archived")
	}
	return course, nil
}

func attemptCap(quiz *model.Quiz, attempt int) error {
	if attempt > quiz.MaxAttempts {
		return apperror.PolicyViolation("maximum of %d attempts reached for this quiz", quiz.MaxAttempts)
	}
	return nil
}

func enrollmentErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("not enrolled in this course")
	}
	return apperror.Internal("load enrollment", err)
}

func countLive(completed, live []uuid.UUID) int {
	set := make(map[uuid.UUID]struct{}, len(live))
	for _, id := range live {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range completed {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}
