package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// AssignmentRepository handles assignment data access.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

const assignmentColumns = `id, course_id, module_id, title, description, due_date, points, created_at, updated_at`

func scanAssignment(row interface{ Scan(...any) error }) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := row.Scan(&a.ID, &a.CourseID, &a.ModuleID, &a.Title, &a.Description,
		&a.DueDate, &a.Points, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assignments (course_id, module_id, title, description, due_date, points)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		a.CourseID, a.ModuleID, a.Title, a.Description, a.DueDate, a.Points,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an assignment by id.
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	a, err := scanAssignment(r.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	return a, notFound(err)
}

// ListByCourse returns a course's assignments ordered by due date.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE course_id = $1
		 ORDER BY due_date ASC NULLS LAST, created_at ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// Delete removes an assignment, its submissions, and its summary from every
// enrollment of the course in one transaction.
func (r *AssignmentRepository) Delete(ctx context.Context, courseID, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM assignment_submissions WHERE assignment_id = $1`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM assignments WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE enrollments
		 SET assignment_submissions = assignment_submissions - $1::text,
		     version = version + 1
		 WHERE course_id = $2 AND assignment_submissions ? $1::text`,
		id.String(), courseID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CountByCourse returns the number of assignments in a course.
func (r *AssignmentRepository) CountByCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assignments WHERE course_id = $1`, courseID).Scan(&n)
	return n, err
}
