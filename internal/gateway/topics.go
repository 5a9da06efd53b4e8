package gateway

import "fmt"

// Availability payloads. The broker publishes the offline value itself via
// the last-will when the daemon dies uncleanly.
const (
	availabilityOnline  = "online"
	availabilityOffline = "offline"
)

// topics holds every topic the gateway touches, derived once from the
// discovery prefix and device id.
type topics struct {
	temperatureState string
	humidityState    string
	fanState         string
	autoModeState    string

	fanSet      string
	autoModeSet string

	availability string

	temperatureConfig string
	humidityConfig    string
	fanConfig         string
	autoModeConfig    string
}

func buildTopics(prefix, id string) topics {
	return topics{
		temperatureState: fmt.Sprintf("%s/temperature/state", id),
		humidityState:    fmt.Sprintf("%s/humidity/state", id),
		fanState:         fmt.Sprintf("%s/fan/state", id),
		autoModeState:    fmt.Sprintf("%s/auto_mode/state", id),

		fanSet:      fmt.Sprintf("%s/fan/set", id),
		autoModeSet: fmt.Sprintf("%s/auto_mode/set", id),

		availability: fmt.Sprintf("%s/availability", id),

		temperatureConfig: fmt.Sprintf("%s/sensor/%s/temperature/config", prefix, id),
		humidityConfig:    fmt.Sprintf("%s/sensor/%s/humidity/config", prefix, id),
		fanConfig:         fmt.Sprintf("%s/switch/%s/fan/config", prefix, id),
		autoModeConfig:    fmt.Sprintf("%s/switch/%s/auto_mode/config", prefix, id),
	}
}
