package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// DashboardRepository handles platform dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// PlatformStats retrieves the platform-wide counters in one round trip.
func (r *DashboardRepository) PlatformStats(ctx context.Context) (*model.PlatformStats, error) {
	s := &model.PlatformStats{UsersByStatus: map[model.UserStatus]int{}}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM courses WHERE status = 'active'),
			(SELECT COUNT(*) FROM enrollments),
			(SELECT COUNT(*) FROM enrollments WHERE status = 'completed'),
			(SELECT COALESCE(ROUND(AVG(progress)::numeric, 2), 0)::double precision FROM enrollments)`,
	).Scan(&s.TotalUsers, &s.TotalCourses, &s.ActiveCourses,
		&s.TotalEnrollments, &s.CompletedEnrollments, &s.AverageProgress)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM users GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status model.UserStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		s.UsersByStatus[status] = count
	}
	return s, rows.Err()
}

// TopCourses returns the courses with the most enrollments.
func (r *DashboardRepository) TopCourses(ctx context.Context, limit int) ([]model.CourseSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.title, c.instructor_id, c.status,
		        COUNT(e.id),
		        COUNT(e.id) FILTER (WHERE e.status = 'completed'),
		        COALESCE(ROUND(AVG(e.progress)::numeric, 2), 0)::double precision
		 FROM courses c
		 LEFT JOIN enrollments e ON e.course_id = c.id
		 GROUP BY c.id
		 ORDER BY COUNT(e.id) DESC, c.created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CourseSummary{}
	for rows.Next() {
		var cs model.CourseSummary
		if err := rows.Scan(&cs.CourseID, &cs.Title, &cs.InstructorID, &cs.Status,
			&cs.Enrolled, &cs.Completed, &cs.AverageProgress); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
