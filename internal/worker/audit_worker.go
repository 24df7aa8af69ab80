package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/metrics"
	"github.com/stemsi/coursehub-backend/internal/model"
)

const (
	AuditBatchSize    = 100
	AuditBatchTimeout = 2 * time.Second
	AuditPollTimeout  = 1 * time.Second

	// Redis error backoff bounds for the poll loop.
	AuditRetryMin = 100 * time.Millisecond
	AuditRetryMax = 5 * time.Second
)

// AuditWriter persists audit entries. Inserts must ignore ids that are
// already stored so a re-queued entry is never duplicated.
type AuditWriter interface {
	BulkInsert(ctx context.Context, entries []*model.AuditEntry) error
	Insert(ctx context.Context, e *model.AuditEntry) error
}

// AuditWorker drains the audit persist queue into Postgres in batches.
type AuditWorker struct {
	store AuditWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewAuditWorker(store AuditWriter, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	batch := make([]*model.AuditEntry, 0, AuditBatchSize)
	lastFlush := time.Now()
	var backoff time.Duration

	for {
		if len(batch) > 0 &&
			(len(batch) >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {

			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("shutdown requested, flushing remaining audit entries")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AuditPollTimeout, config.WorkerKey.PersistAuditQueue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					backoff = 0
					continue
				}
				backoff = nextBackoff(backoff)
				w.log.Error().Err(err).Dur("retry_in", backoff).Msg("BLPop error")
				select {
				case <-ctx.Done():
				case <-time.After(backoff):
				}
				continue
			}
			backoff = 0
			if len(item) < 2 {
				continue
			}

			var e model.AuditEntry
			if err := json.Unmarshal([]byte(item[1]), &e); err != nil {
				w.log.Error().Err(err).Msg("dropping malformed audit payload")
				continue
			}
			batch = append(batch, &e)
		}
	}
}

// nextBackoff doubles the previous wait within [AuditRetryMin, AuditRetryMax].
func nextBackoff(prev time.Duration) time.Duration {
	if prev < AuditRetryMin {
		return AuditRetryMin
	}
	if next := prev * 2; next < AuditRetryMax {
		return next
	}
	return AuditRetryMax
}

// ----------------------------------------------------------------
// Bulk insert with per-row fallback
// ----------------------------------------------------------------

func (w *AuditWorker) flush(ctx context.Context, batch []*model.AuditEntry) {
	if len(batch) == 0 {
		return
	}
	metrics.AuditBatchSize.Observe(float64(len(batch)))

	err := w.store.BulkInsert(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("size", len(batch)).Msg("bulk audit insert failed, using fallback")

	for _, e := range batch {
		if err := w.store.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).Str("audit_id", e.ID.String()).Msg("audit insert failed, requeueing")
			w.requeue(ctx, e)
		}
	}
}

func (w *AuditWorker) requeue(ctx context.Context, e *model.AuditEntry) {
	raw, err := json.Marshal(e)
	if err == nil && w.rdb != nil {
		err = w.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, raw).Err()
	}
	if err != nil || w.rdb == nil {
		metrics.AuditAppendFailures.Inc()
		w.log.Error().Err(err).Str("audit_id", e.ID.String()).Msg("audit entry lost")
	}
}
