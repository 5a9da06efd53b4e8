package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"enclosure-monitor/internal/controller"
	"enclosure-monitor/internal/logger"
	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/models"
	"enclosure-monitor/internal/repository"
	"enclosure-monitor/internal/sensor"
)

// ControlService owns the fan. It is the only writer of the relay line and
// of the authoritative FanState: sensor polls, bus commands and the
// shutdown path all funnel through its Run loop, so the state itself needs
// no lock.
type ControlService struct {
	reader  Reader
	line    Line
	ctrl    *controller.Controller
	bus     Bus
	cmds    <-chan models.Command
	events  repository.EventRepo
	state   *StateStore
	metrics *metrics.Metrics
	log     *logger.Logger

	poll      time.Duration
	heartbeat time.Duration

	// loop-owned; touched only from Run's goroutine
	fan        models.FanState
	lastGood   *models.Reading
	sensorDown bool
}

func NewControlService(d Deps) *ControlService {
	return &ControlService{
		reader:    d.Reader,
		line:      d.Line,
		ctrl:      d.Controller,
		bus:       d.Bus,
		cmds:      d.Commands,
		events:    d.Repos.Events,
		state:     d.State,
		metrics:   d.Metrics,
		log:       d.Log,
		poll:      d.PollInterval,
		heartbeat: d.Heartbeat,
	}
}

// Run drives the fan until ctx is canceled. Whatever the exit route, the
// line is forced off and a final state is published before Run returns.
func (s *ControlService) Run(ctx context.Context) error {
	now := time.Now().UTC()
	s.fan = models.FanState{Power: false, Mode: models.ModeAuto, Since: now}
	if err := s.line.Set(false); err != nil {
		return fmt.Errorf("reset fan line: %w", err)
	}
	s.metrics.FanOn.Set(0)
	s.metrics.AutoMode.Set(1)
	s.refreshSnapshot(now)
	s.log.Infow("control loop started", "poll_interval", s.poll, "heartbeat", s.heartbeat)
	defer s.finalize()

	// First evaluation happens immediately, not one poll interval in.
	s.tick(ctx, time.Now().UTC())

	poll := time.NewTicker(s.poll)
	defer poll.Stop()
	beat := time.NewTicker(s.heartbeat)
	defer beat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.cmds:
			s.handleCommand(cmd, time.Now().UTC())
		case now := <-poll.C:
			s.tick(ctx, now.UTC())
		case <-beat.C:
			s.publishAll()
		}
	}
}

// tick is one poll cycle: read the sensor, reconcile the fan against the
// freshest usable reading, refresh the shared snapshot. A failed read keeps
// the previous reading; the controller decides how long it may still be
// trusted.
func (s *ControlService) tick(ctx context.Context, now time.Time) {
	s.metrics.Ticks.Inc()

	r, err := s.reader.Read(ctx)
	switch {
	case err != nil:
		s.sensorDown = true
		s.metrics.SensorErrors.WithLabelValues(sensorErrorKind(err)).Inc()
		s.log.Warnw("sensor read failed", "error", err)
		s.journal(models.Event{
			Type:        models.EventSensorError,
			Description: "sensor read failed",
			Details:     map[string]any{"error": err.Error()},
		})
	default:
		recovered := s.lastGood == nil || s.sensorDown
		s.sensorDown = false
		reading := r
		s.lastGood = &reading
		s.metrics.Temperature.Set(r.Temperature)
		s.metrics.Humidity.Set(r.Humidity)
		// Steady-state readings ride the heartbeat; the first one and the
		// first after an outage go out immediately.
		if recovered {
			s.publishReading()
		}
	}

	if s.reconcile(now) {
		s.publishState()
	}
	s.refreshSnapshot(now)
}

// reconcile applies the controller's decision to the line. Returns true
// when the fan power actually changed.
func (s *ControlService) reconcile(now time.Time) bool {
	dec := s.ctrl.Evaluate(s.lastGood, s.fan, now)
	if dec.Power == s.fan.Power {
		return false
	}
	if !s.writeLine(dec.Power) {
		return false
	}
	s.fan.Power = dec.Power
	s.fan.Since = now
	s.recordTransition(dec)
	return true
}

// handleCommand applies a bus command, then immediately re-evaluates so a
// safety override can reverse it on the spot. The resulting state is always
// republished, even when nothing changed, to acknowledge the command.
func (s *ControlService) handleCommand(cmd models.Command, now time.Time) {
	s.log.Infow("bus command", "kind", cmd.Kind, "on", cmd.On)

	before := s.fan
	next := s.ctrl.Apply(cmd, s.fan, now)

	s.fan.Mode = next.Mode
	if next.Power != before.Power {
		// A flip the re-evaluation below immediately reverses (manual off
		// during a critical condition) stays away from the relay; state and
		// journal still record it, so the acknowledgment shows the command
		// landing and the override winning.
		overridden := s.ctrl.Evaluate(s.lastGood, next, now).Power != next.Power
		if overridden || s.writeLine(next.Power) {
			s.fan.Power = next.Power
			s.fan.Since = next.Since
			s.recordTransition(controller.Decision{Power: next.Power, Reason: controller.ReasonManual})
		}
	}

	s.metrics.AutoMode.Set(boolToGauge(s.fan.Mode == models.ModeAuto))
	s.metrics.Commands.WithLabelValues("applied").Inc()
	s.journal(models.Event{
		Type:        models.EventCommand,
		Description: fmt.Sprintf("bus command %s handled", cmd.Kind),
		Details: map[string]any{
			"kind":       string(cmd.Kind),
			"on":         cmd.On,
			"prev_power": before.PowerPayload(),
			"prev_mode":  string(before.Mode),
			"power":      s.fan.PowerPayload(),
			"mode":       string(s.fan.Mode),
		},
	})

	// an override (or, after a mode switch, plain hysteresis) may change
	// the power right away; its transition is recorded by reconcile and
	// the acknowledgment below carries the final state
	s.reconcile(now)

	s.publishState()
	s.refreshSnapshot(now)
}

// writeLine drives the relay. On failure the in-memory state is left
// untouched so it keeps matching the hardware; the next tick retries.
func (s *ControlService) writeLine(on bool) bool {
	if err := s.line.Set(on); err != nil {
		s.log.Errorw("fan line write failed", "on", on, "error", err)
		return false
	}
	return true
}

// recordTransition updates gauges, logs and journals one power flip. The
// caller has already mutated s.fan.
func (s *ControlService) recordTransition(dec controller.Decision) {
	s.metrics.FanOn.Set(boolToGauge(s.fan.Power))
	s.metrics.FanTransitions.WithLabelValues(string(dec.Reason)).Inc()

	details := map[string]any{
		"power":  s.fan.PowerPayload(),
		"mode":   string(s.fan.Mode),
		"reason": string(dec.Reason),
	}
	if s.lastGood != nil {
		details["temperature_c"] = s.lastGood.Temperature
	}
	word := strings.ToLower(s.fan.PowerPayload())
	s.log.Infow("fan "+word, "reason", dec.Reason, "mode", s.fan.Mode)
	s.journal(models.Event{
		Type:        models.EventTransition,
		Description: fmt.Sprintf("fan %s (%s)", word, dec.Reason),
		Details:     details,
	})
}

func (s *ControlService) publishReading() {
	if s.lastGood == nil {
		return
	}
	if err := s.bus.PublishReading(*s.lastGood); err != nil {
		s.log.Warnw("reading publish failed", "error", err)
	}
}

func (s *ControlService) publishState() {
	if err := s.bus.PublishState(s.fan); err != nil {
		s.log.Warnw("state publish failed", "error", err)
	}
}

// publishAll is the heartbeat: the retained topics are refreshed even when
// nothing changed, so a silently wedged broker session shows up remotely.
func (s *ControlService) publishAll() {
	s.publishReading()
	s.publishState()
}

func (s *ControlService) refreshSnapshot(now time.Time) {
	s.state.Set(models.Snapshot{
		Fan:       s.fan,
		Reading:   s.lastGood,
		Online:    s.bus.IsConnected(),
		UpdatedAt: now,
	})
}

// finalize is the guaranteed tail of every Run exit: force the line off,
// publish the final state, and journal the flip when the fan was still
// running. A fan that was already off records no transition.
func (s *ControlService) finalize() {
	now := time.Now().UTC()
	if err := s.line.Set(false); err != nil {
		s.log.Errorw("fan line off at shutdown failed", "error", err)
	}
	if s.fan.Power {
		s.fan.Power = false
		s.fan.Since = now
		s.journal(models.Event{
			Type:        models.EventTransition,
			Description: "fan forced off at shutdown",
			Details:     map[string]any{"mode": string(s.fan.Mode)},
		})
	}
	s.metrics.FanOn.Set(0)
	s.publishState()
	s.refreshSnapshot(now)
	s.log.Infow("control loop stopped")
}

// journal appends best-effort; a full or failing repo must never stall the
// loop.
func (s *ControlService) journal(e models.Event) {
	if err := s.events.Append(context.Background(), e); err != nil {
		s.log.Warnw("journal append failed", "error", err)
	}
}

func sensorErrorKind(err error) string {
	if errors.Is(err, sensor.ErrOutOfRange) {
		return "out_of_range"
	}
	return "unavailable"
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
