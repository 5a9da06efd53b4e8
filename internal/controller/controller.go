// Package controller holds the fan decision logic: two-threshold hysteresis,
// the critical-temperature override and the maximum-runtime cutoff. It is
// pure: no I/O, no clock, no goroutines. Callers pass the current state, the
// most recent known-good reading and the current instant, and get a decision
// back.
package controller

import (
	"fmt"
	"time"

	"enclosure-monitor/internal/models"
)

// Reason explains a decision. Only CRITICAL, MAX_RUNTIME, AUTO_ON and
// AUTO_OFF can accompany a power change; MANUAL and HOLD confirm the
// current power.
type Reason string

const (
	ReasonCritical   Reason = "CRITICAL"    // temperature at or above temp_critical
	ReasonMaxRuntime Reason = "MAX_RUNTIME" // continuous runtime reached max_runtime
	ReasonAutoOn     Reason = "AUTO_ON"     // hysteresis: reached temp_on from below
	ReasonAutoOff    Reason = "AUTO_OFF"    // hysteresis: reached temp_off from above
	ReasonManual     Reason = "MANUAL"      // manual mode holds the commanded power
	ReasonHold       Reason = "HOLD"        // inside the band, or no usable reading
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Power  bool
	Reason Reason
}

// Thresholds configures a Controller. Temperatures are °C.
type Thresholds struct {
	TempOn        float64       // from OFF, turn ON at or above
	TempOff       float64       // from ON, turn OFF at or below
	TempCritical  float64       // forced ON at or above, regardless of mode
	MaxRuntime    time.Duration // continuous ON ceiling outside critical
	ReadingMaxAge time.Duration // how long a reading may drive decisions
}

// Controller evaluates fan decisions against a fixed threshold set.
type Controller struct {
	t Thresholds
}

// New rejects threshold sets that cannot yield sane behavior. Configuration
// is validated at startup already; this guards direct constructions.
func New(t Thresholds) (*Controller, error) {
	if !(t.TempOff < t.TempOn && t.TempOn < t.TempCritical) {
		return nil, fmt.Errorf("thresholds must satisfy temp_off < temp_on < temp_critical, got %.2f / %.2f / %.2f",
			t.TempOff, t.TempOn, t.TempCritical)
	}
	if t.MaxRuntime <= 0 {
		return nil, fmt.Errorf("max runtime must be positive, got %v", t.MaxRuntime)
	}
	if t.ReadingMaxAge <= 0 {
		return nil, fmt.Errorf("reading max age must be positive, got %v", t.ReadingMaxAge)
	}
	return &Controller{t: t}, nil
}

// usable reports whether r may drive a decision at instant now. One rule for
// overrides and hysteresis alike: a reading older than the validity window
// drives nothing.
func (c *Controller) usable(r *models.Reading, now time.Time) bool {
	return r != nil && r.Age(now) <= c.t.ReadingMaxAge
}

// Evaluate decides the fan power. r is the most recent known-good reading
// (nil before the first). Priority order, first match wins:
//
//  1. critical override: forced ON, beats everything including manual OFF
//  2. max-runtime cutoff: forced OFF, unless critical is active
//  3. manual mode: hold the last commanded power
//  4. hysteresis on a usable reading, inclusive comparisons
//  5. no usable reading: hold the current power (fail-safe-hold)
func (c *Controller) Evaluate(r *models.Reading, st models.FanState, now time.Time) Decision {
	usable := c.usable(r, now)

	if usable && r.Temperature >= c.t.TempCritical {
		return Decision{Power: true, Reason: ReasonCritical}
	}
	if st.Power && now.Sub(st.Since) >= c.t.MaxRuntime {
		return Decision{Power: false, Reason: ReasonMaxRuntime}
	}
	if st.Mode == models.ModeManual {
		return Decision{Power: st.Power, Reason: ReasonManual}
	}
	if !usable {
		return Decision{Power: st.Power, Reason: ReasonHold}
	}
	if !st.Power && r.Temperature >= c.t.TempOn {
		return Decision{Power: true, Reason: ReasonAutoOn}
	}
	if st.Power && r.Temperature <= c.t.TempOff {
		return Decision{Power: false, Reason: ReasonAutoOff}
	}
	return Decision{Power: st.Power, Reason: ReasonHold}
}

// Apply folds a validated command into the state and returns the result.
// A direct power command is a manual act, so it also switches the mode to
// MANUAL. A mode command never touches power or Since, which is how a
// MANUAL→AUTO switch resumes hysteresis from the current power without a
// spurious transition. Commanding the current value changes nothing.
func (c *Controller) Apply(cmd models.Command, st models.FanState, now time.Time) models.FanState {
	switch cmd.Kind {
	case models.CommandFanPower:
		st.Mode = models.ModeManual
		if st.Power != cmd.On {
			st.Power = cmd.On
			st.Since = now
		}
	case models.CommandAutoMode:
		if cmd.On {
			st.Mode = models.ModeAuto
		} else {
			st.Mode = models.ModeManual
		}
	}
	return st
}
