package hardware

import (
	"math/rand"
	"sync"
	"time"

	"enclosure-monitor/internal/logger"
)

// Simulation envelope. The walk is biased upward so the hysteresis actually
// cycles when the simulated fan cools the enclosure back down.
const (
	simStartTempC  = 26.0
	simMinTempC    = 15.0
	simMaxTempC    = 60.0
	simHeatPerTick = 0.6 // passive heating bias, °C
	simCoolPerTick = 1.4 // extra cooling while the fan runs, °C
	simJitterC     = 0.4
	simStartRH     = 45.0
	simMinRH       = 20.0
	simMaxRH       = 80.0
	simJitterRH    = 1.5
)

// openSim builds an in-memory rig: a random-walk sensor coupled to a relay
// that only logs. Lets the daemon run end-to-end on a developer machine.
func openSim(log *logger.Logger) *Rig {
	line := &simLine{log: log}
	return &Rig{
		Sensor: &simSensor{
			line: line,
			temp: simStartTempC,
			rh:   simStartRH,
			rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		},
		Fan:   line,
		close: func() error { return nil },
	}
}

type simSensor struct {
	line *simLine

	mu   sync.Mutex
	temp float64
	rh   float64
	rng  *rand.Rand
}

func (s *simSensor) Sample() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temp += simHeatPerTick + (s.rng.Float64()*2-1)*simJitterC
	if s.line.State() {
		s.temp -= simHeatPerTick + simCoolPerTick
	}
	s.temp = clamp(s.temp, simMinTempC, simMaxTempC)

	s.rh += (s.rng.Float64()*2 - 1) * simJitterRH
	s.rh = clamp(s.rh, simMinRH, simMaxRH)

	return s.temp, s.rh, nil
}

type simLine struct {
	log *logger.Logger

	mu sync.Mutex
	on bool
}

func (l *simLine) Set(on bool) error {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()

	if changed && l.log != nil {
		l.log.Infow("simulated fan line", "on", on)
	}
	return nil
}

func (l *simLine) State() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
