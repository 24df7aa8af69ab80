package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// UserRepository handles user account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user. Returns ErrDuplicate when the email is taken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, notFound(err)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	return u, notFound(err)
}

// List returns a page of users matching filter, newest first, plus the total count.
func (r *UserRepository) List(ctx context.Context, filter model.UserFilter, limit, offset int) ([]model.User, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		where += fmt.Sprintf(` AND role = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// UpdateStatus sets a user's status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile writes the display name of u.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET first_name = $1, last_name = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING updated_at`,
		u.FirstName, u.LastName, u.ID,
	).Scan(&u.UpdatedAt)
	return notFound(err)
}

// UpsertAdmin creates or promotes an approved HR Admin account.
func (r *UserRepository) UpsertAdmin(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash,
		     role = EXCLUDED.role,
		     status = EXCLUDED.status,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, model.RoleHRAdmin, model.UserStatusApproved,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// Delete removes a user with their submissions and enrollments in one
// transaction. Returns ErrHasDependents if the user still owns courses.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var owned int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM courses WHERE instructor_id = $1`, id).Scan(&owned); err != nil {
		return err
	}
	if owned > 0 {
		return ErrHasDependents
	}

	for _, stmt := range []string{
		`DELETE FROM quiz_submissions WHERE student_id = $1`,
		`DELETE FROM assignment_submissions WHERE student_id = $1`,
		`DELETE FROM enrollments WHERE student_id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
