package service

import (
	"context"

	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/model"
	"golang.org/x/sync/errgroup"
)

// DashboardTopCourses is how many courses the dashboard breakdown lists.
const DashboardTopCourses = 5

// DashboardService assembles the platform-wide dashboard.
type DashboardService struct {
	store DashboardStore
	guard *access.Guard
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store DashboardStore, guard *access.Guard) *DashboardService {
	return &DashboardService{store: store, guard: guard}
}

// Get fetches the platform counters and the busiest courses concurrently.
func (s *DashboardService) Get(ctx context.Context, p model.Principal) (*model.Dashboard, error) {
	if err := s.guard.Authorize(p, access.DashboardRead, access.Resource{}); err != nil {
		return nil, err
	}

	var (
		stats *model.PlatformStats
		top   []model.CourseSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = s.store.PlatformStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.store.TopCourses(gctx, DashboardTopCourses)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal("load dashboard", err)
	}

	return &model.Dashboard{Stats: *stats, TopCourses: top}, nil
}
