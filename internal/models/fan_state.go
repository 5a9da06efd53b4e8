package models

import "time"

// Mode selects who decides the fan power.
type Mode string

const (
	ModeAuto   Mode = "AUTO"   // hysteresis controller decides
	ModeManual Mode = "MANUAL" // last explicit command decides
)

// Wire payloads for switch state and command topics.
const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"
)

// FanState is the authoritative actuator state. Exactly one goroutine
// (the control loop) mutates it; everyone else sees copies.
type FanState struct {
	Power bool      `json:"power"`
	Mode  Mode      `json:"mode"`
	Since time.Time `json:"since"` // instant of the last power change
}

// PowerPayload renders Power as the ON/OFF wire payload.
func (s FanState) PowerPayload() string {
	if s.Power {
		return PayloadOn
	}
	return PayloadOff
}

// ModePayload renders Mode as the ON/OFF wire payload of the auto-mode switch.
func (s FanState) ModePayload() string {
	if s.Mode == ModeAuto {
		return PayloadOn
	}
	return PayloadOff
}

// Snapshot is an immutable view of the daemon for HTTP, WebSocket and bus
// resynchronization readers.
type Snapshot struct {
	Fan       FanState  `json:"fan"`
	Reading   *Reading  `json:"reading,omitempty"` // last known-good sample, nil before the first
	Online    bool      `json:"online"`            // bus connectivity
	UpdatedAt time.Time `json:"updated_at"`
}
