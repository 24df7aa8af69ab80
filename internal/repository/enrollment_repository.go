package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// EnrollmentRepository handles enrollment data access. Every write is a
// compare-and-swap on the version column.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

const enrollmentColumns = `e.id, e.student_id, e.course_id, e.status, e.progress, e.completed_modules,
	e.quiz_attempts, e.assignment_submissions, e.enrolled_at, e.last_accessed, e.completed_at, e.version`

func enrollmentDest(e *model.Enrollment) []any {
	return []any{&e.ID, &e.StudentID, &e.CourseID, &e.Status, &e.Progress, &e.CompletedModules,
		&e.QuizAttempts, &e.AssignmentSubmissions, &e.EnrolledAt, &e.LastAccessed, &e.CompletedAt, &e.Version}
}

// EnrollmentAggregate summarizes all enrollments of a course.
type EnrollmentAggregate struct {
	Total                int
	ProgressSum          float64
	Completed            int
	QuizzesAttempted     int
	AssignmentsSubmitted int
}

// Create inserts e. Returns ErrDuplicate when the student is already
// enrolled in the course; nothing is written in that case.
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	attempts, subs, err := marshalSummaries(e)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO enrollments (id, student_id, course_id, status, progress, completed_modules,
		                          quiz_attempts, assignment_submissions, enrolled_at, last_accessed, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0)
		 ON CONFLICT (student_id, course_id) DO NOTHING
		 RETURNING version`,
		e.ID, e.StudentID, e.CourseID, e.Status, e.Progress, completedModules(e),
		attempts, subs, e.EnrolledAt, e.LastAccessed,
	).Scan(&e.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return err
}

// Get retrieves the enrollment of a student in a course.
func (r *EnrollmentRepository) Get(ctx context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments e WHERE e.student_id = $1 AND e.course_id = $2`,
		studentID, courseID,
	).Scan(enrollmentDest(e)...)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// ListByStudent returns a student's enrollments with course titles, most recently accessed first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.EnrollmentWithCourse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+enrollmentColumns+`, c.title
		 FROM enrollments e
		 JOIN courses c ON c.id = e.course_id
		 WHERE e.student_id = $1
		 ORDER BY e.last_accessed DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.EnrollmentWithCourse{}
	for rows.Next() {
		var ec model.EnrollmentWithCourse
		dest := append(enrollmentDest(&ec.Enrollment), &ec.CourseTitle)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// ListByCourse returns a page of a course's enrollments with the total count.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uuid.UUID, limit, offset int) ([]model.Enrollment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments e
		 WHERE e.course_id = $1
		 ORDER BY e.enrolled_at ASC, e.id ASC
		 LIMIT $2 OFFSET $3`, courseID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Enrollment{}
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(enrollmentDest(&e)...); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Aggregate summarizes a course's enrollments in one pass.
func (r *EnrollmentRepository) Aggregate(ctx context.Context, courseID uuid.UUID) (*EnrollmentAggregate, error) {
	a := &EnrollmentAggregate{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(t.progress), 0),
		        COUNT(*) FILTER (WHERE t.status = 'completed'),
		        COALESCE(SUM(t.quizzes), 0)::bigint,
		        COALESCE(SUM(t.assignments), 0)::bigint
		 FROM (
		     SELECT progress, status,
		            (SELECT COUNT(*) FROM jsonb_object_keys(quiz_attempts)) AS quizzes,
		            (SELECT COUNT(*) FROM jsonb_object_keys(assignment_submissions)) AS assignments
		     FROM enrollments
		     WHERE course_id = $1
		 ) AS t`, courseID,
	).Scan(&a.Total, &a.ProgressSum, &a.Completed, &a.QuizzesAttempted, &a.AssignmentsSubmitted)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update writes e if its version still matches the stored one, then
// advances e.Version. Returns ErrVersionConflict otherwise.
func (r *EnrollmentRepository) Update(ctx context.Context, e *model.Enrollment) error {
	return updateEnrollment(ctx, r.pool, e)
}

// RecordQuizSubmission inserts an immutable quiz submission and applies the
// matching enrollment update in a single transaction. Returns ErrDuplicate
// if the attempt number is already taken and ErrVersionConflict if the
// enrollment changed since it was read.
func (r *EnrollmentRepository) RecordQuizSubmission(ctx context.Context, s *model.QuizSubmission, e *model.Enrollment) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return err
	}
	feedback, err := json.Marshal(s.Feedback)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO quiz_submissions (id, quiz_id, course_id, student_id, attempt_number, answers, feedback,
		                               points_possible, points_scored, score, status, passed, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.QuizID, s.CourseID, s.StudentID, s.AttemptNumber, answers, feedback,
		s.PointsPossible, s.PointsScored, s.Score, s.Status, s.Passed, s.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	if err := updateEnrollment(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RecordAssignmentSubmission inserts an immutable assignment submission and
// applies the matching enrollment update in a single transaction.
func (r *EnrollmentRepository) RecordAssignmentSubmission(ctx context.Context, s *model.AssignmentSubmission, e *model.Enrollment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO assignment_submissions (id, assignment_id, course_id, student_id, file_ref, file_name, comment, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.AssignmentID, s.CourseID, s.StudentID, s.FileRef, s.FileName, s.Comment, s.Status, s.SubmittedAt)
	if err != nil {
		return err
	}

	if err := updateEnrollment(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// recomputeCourseProgress rewrites the progress of every non-completed
// enrollment of a course from its live module set: completed ids that still
// exist over the module count, rounded to two places. Only rows whose value
// changes get a version bump.
func recomputeCourseProgress(ctx context.Context, q querier, courseID uuid.UUID) error {
	_, err := q.Exec(ctx,
		`WITH total AS (
		     SELECT COUNT(*)::numeric AS n FROM modules WHERE course_id = $1
		 ), calc AS (
		     SELECT e.id,
		            CASE WHEN total.n = 0 THEN 0
		                 ELSE ROUND((SELECT COUNT(*) FROM modules m
		                             WHERE m.course_id = $1 AND m.id = ANY(e.completed_modules))::numeric
		                            * 100 / total.n, 2)
		            END::double precision AS progress
		     FROM enrollments e, total
		     WHERE e.course_id = $1 AND e.status <> 'completed'
		 )
		 UPDATE enrollments e
		 SET progress = calc.progress,
		     version = e.version + 1
		 FROM calc
		 WHERE e.id = calc.id AND e.progress IS DISTINCT FROM calc.progress`,
		courseID)
	return err
}

func updateEnrollment(ctx context.Context, q querier, e *model.Enrollment) error {
	attempts, subs, err := marshalSummaries(e)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx,
		`UPDATE enrollments
		 SET status = $1,
		     progress = $2,
		     completed_modules = $3,
		     quiz_attempts = $4,
		     assignment_submissions = $5,
		     last_accessed = $6,
		     completed_at = $7,
		     version = version + 1
		 WHERE id = $8 AND version = $9
		 RETURNING version`,
		e.Status, e.Progress, completedModules(e), attempts, subs,
		e.LastAccessed, e.CompletedAt, e.ID, e.Version,
	).Scan(&e.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

func marshalSummaries(e *model.Enrollment) ([]byte, []byte, error) {
	attempts := e.QuizAttempts
	if attempts == nil {
		attempts = map[string]model.QuizAttemptSummary{}
	}
	subs := e.AssignmentSubmissions
	if subs == nil {
		subs = map[string]model.AssignmentSubmissionSummary{}
	}
	a, err := json.Marshal(attempts)
	if err != nil {
		return nil, nil, err
	}
	s, err := json.Marshal(subs)
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}

func completedModules(e *model.Enrollment) []uuid.UUID {
	if e.CompletedModules == nil {
		return []uuid.UUID{}
	}
	return e.CompletedModules
}
