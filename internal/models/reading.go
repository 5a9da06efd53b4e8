package models

import "time"

// Physical measurement envelope of the SHT3x part. Values outside it are
// sensor faults, not weather.
const (
	MinTempC    = -40.0
	MaxTempC    = 125.0
	MinHumidity = 0.0
	MaxHumidity = 100.0
)

// Reading is a single temperature/humidity sample.
type Reading struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %RH
	TakenAt     time.Time `json:"taken_at"`
}

// Valid reports whether the sample lies inside the device's physical range.
func (r Reading) Valid() bool {
	if r.Temperature < MinTempC || r.Temperature > MaxTempC {
		return false
	}
	if r.Humidity < MinHumidity || r.Humidity > MaxHumidity {
		return false
	}
	return true
}

// Age returns how old the sample is at the given instant.
func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.TakenAt)
}
