package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/models"
	"enclosure-monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, metrics.New(), nil)

	cases := []struct {
		name  string
		query string
		want  time.Duration
	}{
		{"default when missing", "", defaultInterval},
		{"duration form", "interval=200ms", 200 * time.Millisecond},
		{"millisecond form", "interval_ms=150", 150 * time.Millisecond},
		{"duration above ceiling ignored", "interval=20s", defaultInterval},
		{"milliseconds above ceiling ignored", "interval_ms=20000", defaultInterval},
		{"garbage duration ignored", "interval=bogus", defaultInterval},
		{"garbage milliseconds ignored", "interval_ms=NaN", defaultInterval},
		{"duration wins over milliseconds", "interval=2s&interval_ms=150", 2 * time.Second},
		{"milliseconds used when duration invalid", "interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/ws/state"
			if tc.query != "" {
				target += "?" + tc.query
			}
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, target, nil)
			if got := h.parseInterval(c); got != tc.want {
				t.Fatalf("parseInterval(%q) = %v, want %v", tc.query, got, tc.want)
			}
		})
	}
}

// dialWS spins up the router, upgrades a client connection and returns it.
func dialWS(t *testing.T, mon *mockMonitoring, rawQuery string) *websocket.Conn {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(&service.Service{Monitoring: mon}, metrics.New(), nil)
	r.GET("/ws/state", h.wsState)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/state"
	if rawQuery != "" {
		wsURL += "?" + rawQuery
	}
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readStateFrame reads one envelope and decodes its snapshot payload.
func readStateFrame(t *testing.T, conn *websocket.Conn) models.Snapshot {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if env.Type != "state" || len(env.Data) == 0 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	var st models.Snapshot
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return st
}

func TestWebSocket_StreamsInitialAndPeriodicSnapshots(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	mon := &mockMonitoring{state: models.Snapshot{
		Fan:       models.FanState{Power: true, Mode: models.ModeManual, Since: now},
		Reading:   &models.Reading{Temperature: 33.5, Humidity: 51, TakenAt: now},
		Online:    true,
		UpdatedAt: now,
	}}

	conn := dialWS(t, mon, "interval_ms=20")

	first := readStateFrame(t, conn)
	if !first.Fan.Power || first.Fan.Mode != models.ModeManual {
		t.Fatalf("unexpected fan state in first frame: %+v", first.Fan)
	}
	if first.Reading == nil || first.Reading.Temperature != 33.5 {
		t.Fatalf("unexpected reading in first frame: %+v", first.Reading)
	}

	// the ticker must keep pushing without any client input
	second := readStateFrame(t, conn)
	if !second.Online {
		t.Fatalf("unexpected second frame: %+v", second)
	}
}

func TestWebSocket_ClosesWhenInitialSnapshotFails(t *testing.T) {
	mon := &mockMonitoring{err: errors.New("store gone")}
	conn := dialWS(t, mon, "")

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the server to close the session on a failed initial snapshot")
	}
}
