package handlers

import (
	"context"
	"time"

	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/models"
	"enclosure-monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockMonitoring struct {
	state models.Snapshot
	err   error
	calls int
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.Snapshot, error) {
	m.calls++
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.Event
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.Event, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, metrics.New(), nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
