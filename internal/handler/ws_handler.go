package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/model"
	ws "github.com/stemsi/coursehub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams freshly recorded audit entries to HR Admins.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AuditStream godoc
// WS /ws/v1/audit/stream?token=...
// Forwards every audit entry published on the live channel. Clients may send
// {"action":"filter","action_type":"...","course_id":"..."} to narrow the feed
// and {"action":"ping"} to check liveness.
func (h *WSHandler) AuditStream(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	wc := ws.NewConn(conn)
	defer wc.Close()

	wsLog := h.log.With().Str("user_id", p.UserID.String()).Logger()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.AuditLiveChannel())
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Subscribe to audit channel failed")
		_ = wc.WriteError("live feed unavailable")
		return
	}

	filters := make(chan ws.Filter, 1)
	go h.readLoop(wc, wsLog, filters, cancel)

	var filter ws.Filter
	if err := wc.WriteTyped(ws.ReadyResponse{Event: ws.EventReady, Filter: filter}); err != nil {
		return
	}
	wsLog.Info().Msg("Admin attached to live audit feed")

	ch := pubsub.Channel()
	pingTicker := time.NewTicker(ws.PingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			wsLog.Info().Msg("Admin detached from live audit feed")
			return

		case f := <-filters:
			filter = f
			if err := wc.WriteTyped(ws.ReadyResponse{Event: ws.EventReady, Filter: filter}); err != nil {
				return
			}

		case msg, open := <-ch:
			if !open {
				return
			}
			var entry model.AuditEntry
			if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
				wsLog.Warn().Err(err).Msg("Skipping malformed audit payload")
				continue
			}
			if !filter.Match(&entry) {
				continue
			}
			if err := wc.WriteTyped(ws.AuditResponse{Event: ws.EventAudit, Entry: json.RawMessage(msg.Payload)}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing")
				return
			}

		case <-pingTicker.C:
			if err := wc.Ping(); err != nil {
				return
			}
		}
	}
}

// readLoop handles client actions until the connection drops, then cancels
// the stream.
func (h *WSHandler) readLoop(wc *ws.Conn, wsLog zerolog.Logger, filters chan ws.Filter, cancel context.CancelFunc) {
	defer cancel()

	for {
		var raw json.RawMessage
		if err := wc.ReadJSON(&raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			_ = wc.WriteError("invalid message")
			continue
		}

		switch env.Action {
		case ws.ActionPing:
			_ = wc.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionFilter:
			var req ws.FilterRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				_ = wc.WriteError("invalid filter")
				continue
			}
			f, err := ws.ParseFilter(req)
			if err != nil {
				_ = wc.WriteError("invalid course_id")
				continue
			}
			// Only the latest filter matters.
			select {
			case <-filters:
			default:
			}
			filters <- f
		default:
			_ = wc.WriteError("unknown action: " + string(env.Action))
		}
	}
}
