package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/metrics"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// Recorder appends audit entries. Implementations never report failure:
// auditing is best-effort and must not affect the operation being audited.
type Recorder interface {
	Record(ctx context.Context, e model.AuditEntry)
}

// AuditService records audit entries through the Redis persist queue and
// serves paginated queries over the stored trail.
type AuditService struct {
	store   AuditStore
	courses CourseStore
	guard   *access.Guard
	rdb     *redis.Client
	log     zerolog.Logger
	now     clock
}

// NewAuditService creates a new AuditService. A nil rdb makes Record write
// straight to the store.
func NewAuditService(store AuditStore, courses CourseStore, guard *access.Guard, rdb *redis.Client, log zerolog.Logger) *AuditService {
	return &AuditService{
		store:   store,
		courses: courses,
		guard:   guard,
		rdb:     rdb,
		log:     log.With().Str("component", "audit_service").Logger(),
		now:     systemClock,
	}
}

// Record stamps e with a time-ordered id and UTC timestamp, queues it for
// the audit worker and publishes it to live subscribers. If queueing fails
// the entry is written directly; if that fails too it is logged and dropped.
func (s *AuditService) Record(ctx context.Context, e model.AuditEntry) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	e.ID = id
	e.Timestamp = s.now().UTC()
	if len(e.Details) == 0 {
		e.Details = json.RawMessage(`{}`)
	}

	// The triggering request may be cancelled right after responding.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if s.rdb != nil {
		raw, err := json.Marshal(e)
		if err == nil {
			if err = s.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, raw).Err(); err == nil {
				if pubErr := s.rdb.Publish(ctx, config.CacheKey.AuditLiveChannel(), raw).Err(); pubErr != nil {
					s.log.Warn().Err(pubErr).Msg("publish audit entry failed")
				}
				return
			}
		}
		s.log.Warn().Err(err).Str("action_type", e.ActionType).Msg("queue audit entry failed, writing directly")
	}

	if err := s.store.Insert(ctx, &e); err != nil {
		metrics.AuditAppendFailures.Inc()
		s.log.Error().Err(err).
			Str("action_type", e.ActionType).
			Str("user_id", e.UserID.String()).
			Msg("audit entry dropped")
	}
}

// Trail returns one page of the platform-wide audit trail, newest first.
// A role of "" or "all" disables role filtering.
func (s *AuditService) Trail(ctx context.Context, p model.Principal, actionType, role string, page, perPage int) (*model.AuditPage, error) {
	if err := s.guard.Authorize(p, access.AuditRead, access.Resource{}); err != nil {
		return nil, err
	}

	filter := model.AuditFilter{ActionType: strings.TrimSpace(actionType)}
	if r := strings.TrimSpace(role); r != "" && !strings.EqualFold(r, "all") {
		filter.Role = r
	}
	return s.query(ctx, filter, page, perPage)
}

// CourseLog returns one page of the audit entries of a single course.
func (s *AuditService) CourseLog(ctx context.Context, p model.Principal, courseID uuid.UUID, page, perPage int) (*model.AuditPage, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(p, access.AuditCourse, access.Course(course)); err != nil {
		return nil, err
	}
	return s.query(ctx, model.AuditFilter{CourseID: &courseID}, page, perPage)
}

func (s *AuditService) query(ctx context.Context, filter model.AuditFilter, page, perPage int) (*model.AuditPage, error) {
	page, perPage = NormalizePage(page, perPage)

	entries, total, err := s.store.Query(ctx, filter, perPage, offsetOf(page, perPage))
	if err != nil {
		return nil, storeErr("query audit trail", "audit trail", err)
	}

	return &model.AuditPage{
		Entries:      entries,
		Page:         page,
		PerPage:      perPage,
		TotalPages:   (total + perPage - 1) / perPage,
		TotalRecords: total,
	}, nil
}
