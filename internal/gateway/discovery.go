package gateway

import (
	"enclosure-monitor/internal/models"
)

// Device metadata advertised with every entity so the hub groups them.
const (
	deviceManufacturer = "enclosure-monitor"
	deviceModel        = "SHT3x fan controller"
	deviceSWVersion    = "1.2.0"
)

// deviceInfo is the shared device block of the discovery convention.
type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// discoveryPayload is one entity's retained config document.
type discoveryPayload struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic"`
	CommandTopic      string     `json:"command_topic,omitempty"`
	AvailabilityTopic string     `json:"availability_topic"`
	UnitOfMeasurement string     `json:"unit_of_measurement,omitempty"`
	DeviceClass       string     `json:"device_class,omitempty"`
	PayloadOn         string     `json:"payload_on,omitempty"`
	PayloadOff        string     `json:"payload_off,omitempty"`
	Device            deviceInfo `json:"device"`
}

// descriptor pairs a config topic with its payload.
type descriptor struct {
	topic   string
	payload discoveryPayload
}

// descriptors builds the four entity configs: two sensors, two switches.
func (g *Gateway) descriptors() []descriptor {
	dev := deviceInfo{
		Identifiers:  []string{g.device.ID},
		Name:         g.device.Name,
		Manufacturer: deviceManufacturer,
		Model:        deviceModel,
		SWVersion:    deviceSWVersion,
	}
	base := func(name, suffix, stateTopic string) discoveryPayload {
		return discoveryPayload{
			Name:              name,
			UniqueID:          g.device.ID + "_" + suffix,
			StateTopic:        stateTopic,
			AvailabilityTopic: g.topics.availability,
			Device:            dev,
		}
	}

	temperature := base(g.device.Name+" Temperature", "temperature", g.topics.temperatureState)
	temperature.UnitOfMeasurement = g.temperatureUnit()
	temperature.DeviceClass = "temperature"

	humidity := base(g.device.Name+" Humidity", "humidity", g.topics.humidityState)
	humidity.UnitOfMeasurement = "%"
	humidity.DeviceClass = "humidity"

	fan := base(g.device.Name+" Fan", "fan", g.topics.fanState)
	fan.CommandTopic = g.topics.fanSet
	fan.PayloadOn = models.PayloadOn
	fan.PayloadOff = models.PayloadOff

	autoMode := base(g.device.Name+" Auto Mode", "auto_mode", g.topics.autoModeState)
	autoMode.CommandTopic = g.topics.autoModeSet
	autoMode.PayloadOn = models.PayloadOn
	autoMode.PayloadOff = models.PayloadOff

	return []descriptor{
		{g.topics.temperatureConfig, temperature},
		{g.topics.humidityConfig, humidity},
		{g.topics.fanConfig, fan},
		{g.topics.autoModeConfig, autoMode},
	}
}

// temperatureUnit is the display unit advertised in discovery.
func (g *Gateway) temperatureUnit() string {
	if g.mqttCfg.TemperatureUnit == "F" {
		return "°F"
	}
	return "°C"
}

// displayTemperature converts the internal °C value to the display unit.
func (g *Gateway) displayTemperature(celsius float64) float64 {
	if g.mqttCfg.TemperatureUnit == "F" {
		return celsius*9/5 + 32
	}
	return celsius
}
