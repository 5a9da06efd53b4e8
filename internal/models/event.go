package models

import "time"

// Event types recorded in the journal.
const (
	EventTransition  = "TRANSITION"   // fan power changed
	EventCommand     = "COMMAND"      // inbound bus command handled
	EventSensorError = "SENSOR_ERROR" // a tick failed to produce a reading
	EventBus         = "BUS"          // broker connectivity changed
)

// Event is a single journal entry.
type Event struct {
	EventID     string         `json:"event_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Type        string         `json:"type"`        // TRANSITION | COMMAND | SENSOR_ERROR | BUS
	Description string         `json:"description"` // human-readable
	Details     map[string]any `json:"details,omitempty"`
}
