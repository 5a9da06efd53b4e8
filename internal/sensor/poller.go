// Package sensor turns a raw temperature/humidity device into bounded,
// validated readings. A stuck or flaky device must never stall the control
// loop past its configured patience budget.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enclosure-monitor/internal/models"
)

// Device is the minimal sampling contract, implemented by the hardware
// adapters. Sample may block; the Poller bounds it.
type Device interface {
	Sample() (temperature, humidity float64, err error)
}

// Poller errors. Transient device failures are retried internally and only
// surface as ErrUnavailable once the retry budget is spent.
var (
	ErrUnavailable = errors.New("sensor device unavailable")
	ErrOutOfRange  = errors.New("sensor reading outside plausible range")
)

// Options bounds a single Read call.
type Options struct {
	Timeout time.Duration // hard ceiling per sample attempt
	Retries int           // extra attempts after a transient failure
	Backoff time.Duration // fixed pause between attempts
}

// Poller wraps a Device with per-attempt timeouts, bounded retries and
// plausibility validation. It is driven by exactly one caller (the control
// loop) and never runs two device samples at once.
type Poller struct {
	dev  Device
	opts Options
	busy chan struct{} // cap 1, guards the device against overlapping samples
}

// NewPoller builds a Poller around dev.
func NewPoller(dev Device, opts Options) *Poller {
	return &Poller{
		dev:  dev,
		opts: opts,
		busy: make(chan struct{}, 1),
	}
}

// Read produces one validated reading. Transient failures are retried up to
// the budget with a fixed backoff; exhaustion wraps ErrUnavailable. Values
// outside the physical envelope return ErrOutOfRange immediately: retrying
// a measurement the device itself reported as fine would not fix it.
func (p *Poller) Read(ctx context.Context) (models.Reading, error) {
	attempts := p.opts.Retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return models.Reading{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(p.opts.Backoff):
			}
		}

		r, err := p.sampleOnce(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if !r.Valid() {
			return models.Reading{}, fmt.Errorf("%w: %.2f°C / %.2f%%RH", ErrOutOfRange, r.Temperature, r.Humidity)
		}
		return r, nil
	}

	return models.Reading{}, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, attempts, lastErr)
}

type sampleResult struct {
	temp float64
	rh   float64
	err  error
}

// sampleOnce runs a single device sample under the per-attempt deadline. An
// attempt that overruns is abandoned: its late result is discarded, and the
// busy guard keeps the next attempt from touching the device until the stuck
// call actually returns.
func (p *Poller) sampleOnce(ctx context.Context) (models.Reading, error) {
	select {
	case p.busy <- struct{}{}:
	default:
		return models.Reading{}, errors.New("previous sample still in flight")
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	ch := make(chan sampleResult, 1) // buffered so a late result never leaks the goroutine
	go func() {
		defer func() { <-p.busy }()
		t, h, err := p.dev.Sample()
		ch <- sampleResult{temp: t, rh: h, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.Reading{}, fmt.Errorf("sample abandoned after %v: %v", p.opts.Timeout, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return models.Reading{}, fmt.Errorf("sample: %w", res.err)
		}
		return models.Reading{
			Temperature: res.temp,
			Humidity:    res.rh,
			TakenAt:     time.Now().UTC(),
		}, nil
	}
}
