package service

import (
	"context"
	"time"

	"enclosure-monitor/internal/controller"
	"enclosure-monitor/internal/logger"
	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/models"
	"enclosure-monitor/internal/repository"
)

// Reader produces one validated sensor reading, bounded by ctx.
type Reader interface {
	Read(ctx context.Context) (models.Reading, error)
}

// Line drives the fan output and reports the last commanded level.
type Line interface {
	Set(on bool) error
	State() bool
}

// Bus is the slice of the MQTT gateway the control loop talks to.
type Bus interface {
	PublishReading(r models.Reading) error
	PublishState(st models.FanState) error
	IsConnected() bool
}

// Control runs the fan control loop.
// Stop via context cancellation in main() for graceful shutdown.
type Control interface {
	Run(ctx context.Context) error
}

// Monitoring exposes read-only state (reading, fan, bus link).
type Monitoring interface {
	GetState(ctx context.Context) (models.Snapshot, error)
}

// EventLog exposes the append-only journal with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.Event, error)
}

// Service aggregates all sub-services.
type Service struct {
	Control
	Monitoring
	EventLog
}

// Deps carries everything the services are wired from. main() builds one
// after the hardware rig and the gateway are up.
type Deps struct {
	Reader     Reader
	Line       Line
	Controller *controller.Controller
	Bus        Bus
	Commands   <-chan models.Command
	State      *StateStore
	Repos      *repository.Repository
	Metrics    *metrics.Metrics
	Log        *logger.Logger

	PollInterval time.Duration
	Heartbeat    time.Duration
}

// NewService wires the dependency set into concrete services.
func NewService(d Deps) *Service {
	return &Service{
		Control:    NewControlService(d),
		Monitoring: NewMonitoringService(d.State),
		EventLog:   NewEventLogService(d.Repos.Events),
	}
}
