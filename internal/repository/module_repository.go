package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// ModuleRepository handles course module data access.
type ModuleRepository struct {
	pool *pgxpool.Pool
}

// NewModuleRepository creates a new ModuleRepository.
func NewModuleRepository(pool *pgxpool.Pool) *ModuleRepository {
	return &ModuleRepository{pool: pool}
}

const moduleColumns = `id, course_id, title, position, content, status, created_at, updated_at`

func scanModule(row interface{ Scan(...any) error }) (*model.Module, error) {
	m := &model.Module{}
	err := row.Scan(&m.ID, &m.CourseID, &m.Title, &m.Order, &m.Content, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a module and recomputes the progress of the course's open
// enrollments against the grown module set.
func (r *ModuleRepository) Create(ctx context.Context, m *model.Module) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO modules (course_id, title, position, content, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		m.CourseID, m.Title, m.Order, []byte(m.Content), m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return err
	}

	if err := recomputeCourseProgress(ctx, tx, m.CourseID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetByID retrieves a module by id.
func (r *ModuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Module, error) {
	m, err := scanModule(r.pool.QueryRow(ctx,
		`SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id))
	return m, notFound(err)
}

// ListByCourse returns a course's modules in their stable display order.
func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Module, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+moduleColumns+` FROM modules
		 WHERE course_id = $1
		 ORDER BY position ASC, created_at ASC, id ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := []model.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, *m)
	}
	return modules, rows.Err()
}

// ListIDs returns the ids of a course's current modules.
func (r *ModuleRepository) ListIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM modules WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update writes the mutable fields of m.
func (r *ModuleRepository) Update(ctx context.Context, m *model.Module) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE modules SET title = $1, position = $2, content = $3, status = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING updated_at`,
		m.Title, m.Order, []byte(m.Content), m.Status, m.ID,
	).Scan(&m.UpdatedAt)
	return notFound(err)
}

// Delete removes a module, strips its id from every enrollment of the
// course and recomputes open enrollments' progress, bumping each touched
// enrollment's version.
func (r *ModuleRepository) Delete(ctx context.Context, courseID, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM modules WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE enrollments
		 SET completed_modules = array_remove(completed_modules, $1),
		     version = version + 1
		 WHERE course_id = $2 AND $1 = ANY(completed_modules)`,
		id, courseID); err != nil {
		return err
	}
	if err := recomputeCourseProgress(ctx, tx, courseID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
