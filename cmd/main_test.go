package main

import (
	"context"
	"errors"
	"testing"

	"enclosure-monitor/internal/config"
	"enclosure-monitor/internal/gateway"
	"enclosure-monitor/internal/logger"
	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/server"
)

func shutdownFixture(t *testing.T) (*server.Server, *gateway.Gateway, *logger.Logger) {
	t.Helper()
	log, err := logger.New(logger.Options{Level: logger.ErrorLevel})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	srv := server.New("0", nil) // never started; Shutdown is a no-op
	gw := gateway.New(gateway.Deps{
		Device:  config.Device{ID: "enclosure"},
		MQTT:    config.MQTT{Broker: "tcp://broker:1883"},
		Metrics: metrics.New(),
		Log:     log,
	})
	return srv, gw, log
}

func TestWaitForShutdown_LoopFailureSurfacesAndCancels(t *testing.T) {
	srv, gw, log := shutdownFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopErr := errors.New("reset fan line: gpio busy")
	loopDone := make(chan error, 1)
	loopDone <- loopErr

	if err := waitForShutdown(cancel, loopDone, srv, gw, log); !errors.Is(err, loopErr) {
		t.Fatalf("want the loop error back so main can exit non-zero, got %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("the run context must be canceled during the unwind")
	}
}

func TestWaitForShutdown_UnsolicitedCleanStopStillFails(t *testing.T) {
	srv, gw, log := shutdownFixture(t)
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan error, 1)
	loopDone <- nil // the loop ended without anyone asking

	if err := waitForShutdown(cancel, loopDone, srv, gw, log); err == nil {
		t.Fatalf("a loop that stops without a shutdown signal must surface as a failure")
	}
}
