package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

const courseColumns = `id, title, description, instructor_id, start_date, end_date, status, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (*model.Course, error) {
	c := &model.Course{}
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.InstructorID,
		&c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (title, description, instructor_id, start_date, end_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		c.Title, c.Description, c.InstructorID, c.StartDate, c.EndDate, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a course by id.
func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c, err := scanCourse(r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	return c, notFound(err)
}

// List returns a page of courses matching filter, newest first.
func (r *CourseRepository) List(ctx context.Context, filter model.CourseFilter, limit, offset int) ([]model.Course, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if filter.InstructorID != nil {
		args = append(args, *filter.InstructorID)
		where += fmt.Sprintf(` AND instructor_id = $%d`, len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Query != "" {
		args = append(args, likePattern(filter.Query))
		where += fmt.Sprintf(` AND (title ILIKE $%d OR description ILIKE $%d)`, len(args), len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses`+where+
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, *c)
	}
	return courses, total, rows.Err()
}

// likePattern wraps q for a substring ILIKE, escaping its wildcards.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Update writes the mutable fields of c.
func (r *CourseRepository) Update(ctx context.Context, c *model.Course) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE courses
		 SET title = $1, description = $2, start_date = $3, end_date = $4, status = $5, updated_at = NOW()
		 WHERE id = $6
		 RETURNING updated_at`,
		c.Title, c.Description, c.StartDate, c.EndDate, c.Status, c.ID,
	).Scan(&c.UpdatedAt)
	return notFound(err)
}

// DeleteCascade removes a course together with its modules, quizzes,
// assignments, enrollments and submissions in a single transaction.
// Either everything is removed or nothing is.
func (r *CourseRepository) DeleteCascade(ctx context.Context, id uuid.UUID) (*model.CourseCascade, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the course row so concurrent content writes wait for the cascade.
	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		return nil, notFound(err)
	}

	counts := &model.CourseCascade{}
	steps := []struct {
		stmt string
		dst  *int64
	}{
		{`DELETE FROM quiz_submissions WHERE course_id = $1`, &counts.QuizSubmissions},
		{`DELETE FROM assignment_submissions WHERE course_id = $1`, &counts.AssignmentSubmissions},
		{`DELETE FROM enrollments WHERE course_id = $1`, &counts.Enrollments},
		{`DELETE FROM assignments WHERE course_id = $1`, &counts.Assignments},
		{`DELETE FROM quizzes WHERE course_id = $1`, &counts.Quizzes},
		{`DELETE FROM modules WHERE course_id = $1`, &counts.Modules},
	}
	for _, s := range steps {
		tag, err := tx.Exec(ctx, s.stmt, id)
		if err != nil {
			return nil, err
		}
		*s.dst = tag.RowsAffected()
	}

	if _, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return counts, nil
}
