package models

// CommandKind names the two writable targets on the bus.
type CommandKind string

const (
	CommandFanPower CommandKind = "fan_power"
	CommandAutoMode CommandKind = "auto_mode"
)

// Command is a validated inbound bus command. Invalid payloads never become
// a Command.
type Command struct {
	Kind CommandKind `json:"kind"`
	On   bool        `json:"on"`
}
