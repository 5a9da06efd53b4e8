package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enclosure-monitor/internal/config"
	"enclosure-monitor/internal/controller"
	"enclosure-monitor/internal/gateway"
	"enclosure-monitor/internal/handlers"
	"enclosure-monitor/internal/hardware"
	"enclosure-monitor/internal/logger"
	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/models"
	"enclosure-monitor/internal/repository"
	"enclosure-monitor/internal/sensor"
	"enclosure-monitor/internal/server"
	"enclosure-monitor/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// config first: the logger itself is configured
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	m := metrics.New()
	repos := repository.NewRepository(repository.DefaultJournalCapacity)

	// on boot after a power cut the I²C bus can need a moment
	if cfg.StartupDelay > 0 {
		log.Infow("startup delay", "delay", cfg.StartupDelay)
		time.Sleep(cfg.StartupDelay)
	}

	rig, err := hardware.Open(cfg.Hardware, cfg.Sensor, cfg.GPIO, log)
	if err != nil {
		log.Fatalw("hardware init failed", "mode", cfg.Hardware, "err", err)
	}
	defer func() {
		if cerr := rig.Close(); cerr != nil {
			log.Errorw("hardware close failed", "err", cerr)
		}
	}()

	poller := sensor.NewPoller(rig.Sensor, sensor.Options{
		Timeout: cfg.Sensor.ReadTimeout,
		Retries: cfg.Sensor.Retries,
		Backoff: cfg.Sensor.RetryBackoff,
	})

	ctrl, err := controller.New(controller.Thresholds{
		TempOn:        cfg.Control.TempOn,
		TempOff:       cfg.Control.TempOff,
		TempCritical:  cfg.Control.TempCritical,
		MaxRuntime:    cfg.Control.MaxRuntime,
		ReadingMaxAge: cfg.Control.ReadingMaxAge,
	})
	if err != nil {
		log.Fatalw("controller init failed", "err", err)
	}

	store := service.NewStateStore()

	gw := gateway.New(gateway.Deps{
		Device:   cfg.Device,
		MQTT:     cfg.MQTT,
		Snapshot: store.Get,
		Journal: func(e models.Event) {
			_ = repos.Events.Append(context.Background(), e)
		},
		Metrics: m,
		Log:     log,
	})

	services := service.NewService(service.Deps{
		Reader:       poller,
		Line:         rig.Fan,
		Controller:   ctrl,
		Bus:          gw,
		Commands:     gw.Commands(),
		State:        store,
		Repos:        repos,
		Metrics:      m,
		Log:          log,
		PollInterval: cfg.Control.PollInterval,
		Heartbeat:    cfg.Control.Heartbeat,
	})

	apiHandler := handlers.NewHandler(services, m, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start HTTP server; a failed server takes the daemon down through the
	// regular shutdown path, so the fan is still forced off and the
	// hardware released
	srv := server.New(cfg.HTTP.Port, apiHandler.InitRoutes())
	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http server failed", "err", err)
			cancel()
		}
	}()

	// connect to the broker; retries in the background, never fatal
	gw.Connect()

	// start the control loop
	loopDone := make(chan error, 1)
	go func() { loopDone <- services.Control.Run(ctx) }()

	// graceful shutdown; a daemon that died on its own exits non-zero, but
	// only after the hardware is released
	if err := waitForShutdown(cancel, loopDone, srv, gw, log); err != nil {
		if cerr := rig.Close(); cerr != nil {
			log.Errorw("hardware close failed", "err", cerr)
		}
		_ = log.Sync()
		os.Exit(1)
	}
}

// waitForShutdown blocks until a termination signal arrives or the control
// loop dies on its own, then unwinds in order: stop the loop (its final
// action forces the fan off and publishes the state), drain HTTP, announce
// offline and disconnect from the broker. The result is nil for a clean
// signal shutdown and the loop's failure otherwise.
func waitForShutdown(cancel context.CancelFunc, loopDone <-chan error, srv *server.Server, gw *gateway.Gateway, log *logger.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
		cancel()
		if err := <-loopDone; err != nil {
			log.Errorw("control loop exit", "err", err)
		}
	case err := <-loopDone:
		// the loop stops on its own only when it or another subsystem
		// already failed
		if err == nil {
			err = errors.New("control loop stopped without a shutdown signal")
		}
		log.Errorw("control loop stopped unexpectedly", "err", err)
		cancel()
		runErr = err
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	gw.Close()
	return runErr
}
