package hardware

import (
	"errors"
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"enclosure-monitor/internal/config"
)

// openRPi wires the real devices: raspi adaptor, SHT3x on I²C, relay on GPIO.
// The adaptor and drivers are driven directly, without the robot framework,
// since the control loop provides the scheduling.
func openRPi(sc config.Sensor, gc config.GPIO) (*Rig, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	sht := i2c.NewSHT3xDriver(adaptor, i2c.WithBus(sc.Bus), i2c.WithAddress(sc.Address))
	if err := sht.Start(); err != nil {
		_ = adaptor.Finalize()
		return nil, fmt.Errorf("start sht3x driver: %w", err)
	}
	if err := sht.SetAccuracy(i2c.SHT3xAccuracyHigh); err != nil {
		_ = sht.Halt()
		_ = adaptor.Finalize()
		return nil, fmt.Errorf("set sht3x accuracy: %w", err)
	}

	var relayOpts []interface{}
	if gc.Inverted {
		relayOpts = append(relayOpts, gpio.WithRelayInverted())
	}
	relay := gpio.NewRelayDriver(adaptor, gc.Pin, relayOpts...)
	if err := relay.Start(); err != nil {
		_ = sht.Halt()
		_ = adaptor.Finalize()
		return nil, fmt.Errorf("start relay driver on pin %s: %w", gc.Pin, err)
	}

	return &Rig{
		Sensor: &sht3xSensor{drv: sht},
		Fan:    &relayLine{drv: relay},
		close: func() error {
			return errors.Join(relay.Halt(), sht.Halt(), adaptor.Finalize())
		},
	}, nil
}

// sht3xSensor adapts the gobot driver to the sampling contract.
type sht3xSensor struct {
	drv *i2c.SHT3xDriver
}

func (s *sht3xSensor) Sample() (float64, float64, error) {
	temp, rh, err := s.drv.Sample()
	if err != nil {
		return 0, 0, err
	}
	return float64(temp), float64(rh), nil
}

// relayLine adapts the gobot relay driver. It shadows the logical state so
// State never depends on driver internals.
type relayLine struct {
	drv *gpio.RelayDriver

	mu sync.Mutex
	on bool
}

func (r *relayLine) Set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if on {
		err = r.drv.On()
	} else {
		err = r.drv.Off()
	}
	if err != nil {
		return fmt.Errorf("relay write: %w", err)
	}
	r.on = on
	return nil
}

func (r *relayLine) State() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}
