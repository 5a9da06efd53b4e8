package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envKeyReplacer maps config keys to environment variable names, e.g.
// mqtt.broker → ENCLOSURE_MQTT_BROKER.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Device identifies this enclosure on the bus.
type Device struct {
	ID   string // topic segment, must be unique per broker
	Name string // display name for discovery
}

// MQTT holds broker access and publish behavior.
type MQTT struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	QoS             int
	Retain          bool // retain flag for state publishes
	DiscoveryPrefix string
	TemperatureUnit string // C | F, affects published values and discovery only
}

// Sensor holds I²C access and the read patience budget.
type Sensor struct {
	Bus          int
	Address      int
	ReadTimeout  time.Duration // hard ceiling per sample attempt
	Retries      int           // extra attempts after a transient failure
	RetryBackoff time.Duration
}

// GPIO holds the fan relay line.
type GPIO struct {
	Pin      string // BCM pin number
	Inverted bool   // active-low relay boards
}

// Control holds the thresholds and cadences of the control loop.
type Control struct {
	TempOn        float64 // °C, turn on at or above
	TempOff       float64 // °C, turn off at or below
	TempCritical  float64 // °C, forced on at or above, overrides everything
	MaxRuntime    time.Duration
	PollInterval  time.Duration
	Heartbeat     time.Duration // full republish cadence
	ReadingMaxAge time.Duration // validity window for control decisions
}

// HTTP holds the local ops API address.
type HTTP struct {
	Port string
}

// Log holds logger options.
type Log struct {
	Level string
	File  string
}

// Hardware modes.
const (
	HardwareRPi = "rpi"
	HardwareSim = "sim"
)

// Config is the complete, validated daemon configuration. It is built once
// at startup and passed down explicitly; nothing reads configuration after
// that.
type Config struct {
	Device       Device
	MQTT         MQTT
	Sensor       Sensor
	GPIO         GPIO
	Hardware     string // rpi | sim
	Control      Control
	HTTP         HTTP
	Log          Log
	StartupDelay time.Duration
}

// Load reads configs/config.yml (optional), applies ENCLOSURE_* environment
// overrides, validates, and returns the result. A .env file in the working
// directory is honored for development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath("configs") // configs/config.yml
	v.AddConfigPath(".")
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// no file is fine: defaults + environment carry the day
	}

	v.SetEnvPrefix("enclosure")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	cfg := fromViper(v)
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.Device.ID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Device: Device{
			ID:   v.GetString("device.id"),
			Name: v.GetString("device.name"),
		},
		MQTT: MQTT{
			Broker:          v.GetString("mqtt.broker"),
			Username:        v.GetString("mqtt.username"),
			Password:        v.GetString("mqtt.password"),
			ClientID:        v.GetString("mqtt.client_id"),
			QoS:             v.GetInt("mqtt.qos"),
			Retain:          v.GetBool("mqtt.retain"),
			DiscoveryPrefix: v.GetString("mqtt.discovery_prefix"),
			TemperatureUnit: v.GetString("mqtt.temperature_unit"),
		},
		Sensor: Sensor{
			Bus:          v.GetInt("sensor.bus"),
			Address:      v.GetInt("sensor.address"),
			ReadTimeout:  v.GetDuration("sensor.read_timeout"),
			Retries:      v.GetInt("sensor.retries"),
			RetryBackoff: v.GetDuration("sensor.retry_backoff"),
		},
		GPIO: GPIO{
			Pin:      v.GetString("gpio.pin"),
			Inverted: v.GetBool("gpio.inverted"),
		},
		Hardware: v.GetString("hardware.mode"),
		Control: Control{
			TempOn:        v.GetFloat64("control.temp_on"),
			TempOff:       v.GetFloat64("control.temp_off"),
			TempCritical:  v.GetFloat64("control.temp_critical"),
			MaxRuntime:    v.GetDuration("control.max_runtime"),
			PollInterval:  v.GetDuration("control.poll_interval"),
			Heartbeat:     v.GetDuration("control.heartbeat"),
			ReadingMaxAge: v.GetDuration("control.reading_max_age"),
		},
		HTTP: HTTP{
			Port: v.GetString("http.port"),
		},
		Log: Log{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		StartupDelay: v.GetDuration("startup_delay"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.id", "enclosure")
	v.SetDefault("device.name", "Enclosure Monitor")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", true)
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")
	v.SetDefault("mqtt.temperature_unit", "C")
	v.SetDefault("sensor.bus", 1)
	v.SetDefault("sensor.address", 0x44)
	v.SetDefault("sensor.read_timeout", 2*time.Second)
	v.SetDefault("sensor.retries", 2)
	v.SetDefault("sensor.retry_backoff", 250*time.Millisecond)
	v.SetDefault("gpio.pin", "17")
	v.SetDefault("gpio.inverted", false)
	v.SetDefault("hardware.mode", HardwareRPi)
	v.SetDefault("control.temp_on", 30.0)
	v.SetDefault("control.temp_off", 25.0)
	v.SetDefault("control.temp_critical", 45.0)
	v.SetDefault("control.max_runtime", time.Hour)
	v.SetDefault("control.poll_interval", 10*time.Second)
	v.SetDefault("control.heartbeat", time.Minute)
	v.SetDefault("control.reading_max_age", time.Minute)
	v.SetDefault("http.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("startup_delay", 0)
}

// Validate enforces every startup invariant. The daemon refuses to start on
// the first violation set; thresholds are immutable afterwards, so these
// checks never run again.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Device.ID == "" {
		fail("device.id must not be empty")
	}
	if c.MQTT.Broker == "" {
		fail("mqtt.broker must not be empty")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		fail("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if u := c.MQTT.TemperatureUnit; u != "C" && u != "F" {
		fail("mqtt.temperature_unit must be C or F, got %q", u)
	}
	if c.GPIO.Pin == "" {
		fail("gpio.pin must not be empty")
	}
	if c.Hardware != HardwareRPi && c.Hardware != HardwareSim {
		fail("hardware.mode must be %q or %q, got %q", HardwareRPi, HardwareSim, c.Hardware)
	}

	ctl := c.Control
	if !(ctl.TempOff < ctl.TempOn && ctl.TempOn < ctl.TempCritical) {
		fail("control thresholds must satisfy temp_off < temp_on < temp_critical, got %.2f / %.2f / %.2f",
			ctl.TempOff, ctl.TempOn, ctl.TempCritical)
	}
	if ctl.PollInterval <= 0 {
		fail("control.poll_interval must be positive, got %v", ctl.PollInterval)
	}
	if ctl.MaxRuntime <= 0 {
		fail("control.max_runtime must be positive, got %v", ctl.MaxRuntime)
	}
	if ctl.PollInterval > 0 && ctl.ReadingMaxAge < ctl.PollInterval {
		fail("control.reading_max_age (%v) must be at least control.poll_interval (%v)",
			ctl.ReadingMaxAge, ctl.PollInterval)
	}
	if ctl.PollInterval > 0 && ctl.Heartbeat < ctl.PollInterval {
		fail("control.heartbeat (%v) must be at least control.poll_interval (%v)",
			ctl.Heartbeat, ctl.PollInterval)
	}

	if c.Sensor.ReadTimeout <= 0 {
		fail("sensor.read_timeout must be positive, got %v", c.Sensor.ReadTimeout)
	}
	if c.Sensor.Retries < 0 {
		fail("sensor.retries must not be negative, got %d", c.Sensor.Retries)
	}
	if c.Sensor.RetryBackoff < 0 {
		fail("sensor.retry_backoff must not be negative, got %v", c.Sensor.RetryBackoff)
	}
	// a tick must never outlast its own period: the worst-case sensor read,
	// with every attempt timing out, has to fit inside one poll interval
	if c.Sensor.ReadTimeout > 0 && c.Sensor.Retries >= 0 && c.Sensor.RetryBackoff >= 0 && ctl.PollInterval > 0 {
		attempts := 1 + c.Sensor.Retries
		worst := time.Duration(attempts)*c.Sensor.ReadTimeout + time.Duration(c.Sensor.Retries)*c.Sensor.RetryBackoff
		if worst > ctl.PollInterval {
			fail("sensor worst-case read time %v (%d attempts of read_timeout %v plus backoffs) must not exceed control.poll_interval (%v)",
				worst, attempts, c.Sensor.ReadTimeout, ctl.PollInterval)
		}
	}
	if c.StartupDelay < 0 {
		fail("startup_delay must not be negative, got %v", c.StartupDelay)
	}

	return errors.Join(errs...)
}
