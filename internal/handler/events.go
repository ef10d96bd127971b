package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"medride/internal/config"
	"medride/internal/events"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// EventsHandler streams lifecycle events to connected clients over websocket.
type EventsHandler struct {
	bus      *events.Bus
	cfg      config.RealtimeConfig
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new EventsHandler. An origin list containing "*" allows any origin.
func NewEventsHandler(bus *events.Bus, cfg config.RealtimeConfig, allowedOrigins []string, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// Stream handles GET /v1/events
// Admins receive every event; other users only events addressed to them.
func (h *EventsHandler) Stream(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	filter := events.ForUser(actor.UserID)
	if actor.IsAdmin() {
		filter = nil
	}

	// Subscribe before the handshake completes so nothing published after connect is missed.
	feed, unsubscribe := h.bus.Subscribe(h.cfg.BufferSize, filter)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.WithField("user_id", actor.UserID)
	log.Info("event stream connected")
	defer log.Info("event stream disconnected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.readPump(conn, cancel)

	ping := time.NewTicker(h.pingInterval())
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-feed:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if h.stale(e) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				log.WithError(err).Debug("event write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and keeps the read deadline fresh on pong.
func (h *EventsHandler) readPump(conn *websocket.Conn, done context.CancelFunc) {
	defer done()

	pongWait := h.pingInterval() * 2
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// stale reports whether e is too old to be worth pushing.
func (h *EventsHandler) stale(e events.Event) bool {
	return h.cfg.StaleAfter > 0 && time.Since(e.OccurredAt) > h.cfg.StaleAfter
}

func (h *EventsHandler) pingInterval() time.Duration {
	if h.cfg.PingInterval <= 0 {
		return 30 * time.Second
	}
	return h.cfg.PingInterval
}
