package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Keepalive and sizing for snapshot subscribers.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// wsEnvelope frames every outbound websocket message.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins for production
}

// wsState upgrades the request and streams the current snapshot at the
// subscriber's interval until the client goes away or a write fails.
func (h *Handler) wsState(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}

	sub := newSubscriber(h, conn)
	defer sub.close()
	sub.stream(c.Request.Context(), interval)
}

// subscriber is one websocket client. A reader goroutine drains control
// frames and flags disconnects; the handler goroutine owns all writes.
type subscriber struct {
	h    *Handler
	conn *websocket.Conn
	gone chan struct{}
}

func newSubscriber(h *Handler, conn *websocket.Conn) *subscriber {
	s := &subscriber{h: h, conn: conn, gone: make(chan struct{})}
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go s.readLoop()
	return s
}

// stream pushes one snapshot up front, then alternates interval pushes
// with keepalive pings.
func (s *subscriber) stream(ctx context.Context, interval time.Duration) {
	if err := s.pushSnapshot(ctx); err != nil {
		s.logDrop("ws_write_failed_initial", err)
		return
	}

	snapshots := time.NewTicker(interval)
	defer snapshots.Stop()
	pings := time.NewTicker(pingPeriod)
	defer pings.Stop()

	for {
		select {
		case <-s.gone:
			return
		case <-ctx.Done():
			return
		case <-pings.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logDrop("ws_ping_failed", err)
				return
			}
		case <-snapshots.C:
			if err := s.pushSnapshot(ctx); err != nil {
				s.logDrop("ws_write_failed", err)
				return
			}
		}
	}
}

// pushSnapshot writes the current state. A snapshot that cannot be loaded
// ends the session rather than streaming stale frames.
func (s *subscriber) pushSnapshot(ctx context.Context) error {
	st, err := s.h.services.Monitoring.GetState(ctx)
	if err != nil {
		if s.h.log != nil {
			s.h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(wsEnvelope{Type: "state", Data: st})
}

func (s *subscriber) readLoop() {
	defer close(s.gone)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.logDrop("ws_read_closed", err)
			return
		}
	}
}

func (s *subscriber) close() { _ = s.conn.Close() }

func (s *subscriber) logDrop(msg string, err error) {
	if s.h.log != nil {
		s.h.log.Infow(msg, "err", err)
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000, bounded to
// (0, maxInterval]; anything else falls back to the default.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}
