// Package hardware owns the physical I/O: the SHT3x sensor on the I²C bus
// and the fan relay on a GPIO pin. Nothing else in the daemon talks to
// devices. A simulated rig stands in for both on development machines.
package hardware

import (
	"fmt"

	"enclosure-monitor/internal/config"
	"enclosure-monitor/internal/logger"
	"enclosure-monitor/internal/sensor"
)

// Line drives the fan relay output. The control loop is its only writer.
type Line interface {
	Set(on bool) error
	State() bool
}

// Rig bundles the opened devices and their teardown.
type Rig struct {
	Sensor sensor.Device
	Fan    Line

	close func() error
}

// Open connects the devices for the configured mode.
func Open(mode string, sc config.Sensor, gc config.GPIO, log *logger.Logger) (*Rig, error) {
	switch mode {
	case config.HardwareSim:
		return openSim(log), nil
	case config.HardwareRPi:
		return openRPi(sc, gc)
	default:
		return nil, fmt.Errorf("unknown hardware mode %q", mode)
	}
}

// Close halts the devices and releases the adaptor. Safe to call once the
// control loop has stopped writing.
func (r *Rig) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}
