package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"enclosure-monitor/internal/logger"
	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// minimal router wiring only the middleware + one endpoint
func newMiddlewareOnlyRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New(logger.Options{Level: logger.ErrorLevel})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	h := NewHandler(&service.Service{}, metrics.New(), log)

	r := gin.New()
	r.Use(h.requestLogger)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "scrape")
	})
	return r
}

func TestRequestLogger_PassesRequestsThrough(t *testing.T) {
	r := newMiddlewareOnlyRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestRequestLogger_SkipsMetricsScrape(t *testing.T) {
	r := newMiddlewareOnlyRouter(t)

	// scrape path is exempt from logging but must still be served
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "scrape" {
		t.Fatalf("metrics passthrough broken: code=%d body=%q", w.Code, w.Body.String())
	}
}

func TestRequestLogger_NilLoggerIsSafe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(&service.Service{}, metrics.New(), nil)

	r := gin.New()
	r.Use(h.requestLogger)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusNoContent)
	}
}
