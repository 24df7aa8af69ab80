package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// AuditRepository appends and queries audit log entries. There is no
// update or delete path.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends a single entry. Re-inserting the same id is a no-op.
func (r *AuditRepository) Insert(ctx context.Context, e *model.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action_type, course_id, details, "timestamp")
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, e.ActionType, e.CourseID, detailsOrEmpty(e.Details), e.Timestamp)
	return err
}

// BulkInsert appends a batch of entries with a single UNNEST statement.
func (r *AuditRepository) BulkInsert(ctx context.Context, entries []*model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	n := len(entries)
	ids := make([]uuid.UUID, 0, n)
	users := make([]uuid.UUID, 0, n)
	actions := make([]string, 0, n)
	courses := make([]*uuid.UUID, 0, n)
	details := make([]string, 0, n)
	stamps := make([]time.Time, 0, n)

	for _, e := range entries {
		ids = append(ids, e.ID)
		users = append(users, e.UserID)
		actions = append(actions, e.ActionType)
		courses = append(courses, e.CourseID)
		details = append(details, string(detailsOrEmpty(e.Details)))
		stamps = append(stamps, e.Timestamp)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action_type, course_id, details, "timestamp")
		 SELECT u.id, u.user_id, u.action_type, u.course_id, u.details::jsonb, u.ts
		 FROM UNNEST(
		     $1::uuid[],
		     $2::uuid[],
		     $3::text[],
		     $4::uuid[],
		     $5::text[],
		     $6::timestamptz[]
		 ) AS u (id, user_id, action_type, course_id, details, ts)
		 ON CONFLICT (id) DO NOTHING`,
		ids, users, actions, courses, details, stamps)
	return err
}

// Query returns one page of entries matching filter, newest first. Role is
// matched against each actor's current role. Ties on timestamp are broken
// by id so pages never overlap.
func (r *AuditRepository) Query(ctx context.Context, filter model.AuditFilter, limit, offset int) ([]model.AuditRecord, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if filter.ActionType != "" {
		args = append(args, filter.ActionType)
		where += fmt.Sprintf(` AND a.action_type = $%d`, len(args))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(` AND u.role = $%d`, len(args))
	}
	if filter.CourseID != nil {
		args = append(args, *filter.CourseID)
		where += fmt.Sprintf(` AND a.course_id = $%d`, len(args))
	}

	from := ` FROM audit_logs a
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN courses c ON c.id = a.course_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.action_type, a.course_id, a.details, a."timestamp",
		        COALESCE(u.email, ''),
		        COALESCE(NULLIF(TRIM(CONCAT(u.first_name, ' ', u.last_name)), ''), u.email, 'Unknown User'),
		        COALESCE(u.role, 'Unknown Role'),
		        COALESCE(c.title, a.details->>'course_title')`+from+where+
			fmt.Sprintf(` ORDER BY a."timestamp" DESC, a.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.AuditRecord{}
	for rows.Next() {
		var rec model.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ActionType, &rec.CourseID, &rec.Details, &rec.Timestamp,
			&rec.UserEmail, &rec.UserName, &rec.UserRole, &rec.CourseTitle); err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func detailsOrEmpty(d []byte) []byte {
	if len(d) == 0 {
		return []byte(`{}`)
	}
	return d
}
