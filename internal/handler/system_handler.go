package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/config"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports process and dependency health.
type SystemHandler struct {
	db        *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(db *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Checks     map[string]string `json:"checks"`
	AuditQueue int64             `json:"audit_queue"`
	Goroutines int               `json:"goroutines"`
	HeapAlloc  uint64            `json:"heap_alloc"`
	GoVersion  string            `json:"go_version"`
}

// Health godoc
// GET /health
// Responds 503 when Postgres or Redis cannot be reached.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Checks:     map[string]string{},
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	report.HeapAlloc = mem.HeapAlloc

	if h.db != nil {
		report.Checks["postgres"] = h.check(h.db.Ping(ctx), "postgres")
	}
	if h.rdb != nil {
		report.Checks["redis"] = h.check(h.rdb.Ping(ctx).Err(), "redis")
		if n, err := h.rdb.LLen(ctx, config.WorkerKey.PersistAuditQueue).Result(); err == nil {
			report.AuditQueue = n
		}
	}

	status := http.StatusOK
	for _, v := range report.Checks {
		if v != "ok" {
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, report)
}

func (h *SystemHandler) check(err error, name string) string {
	if err != nil {
		h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
		return "unreachable"
	}
	return "ok"
}
