// Package gateway synchronizes the daemon with the home-automation message
// bus: retained discovery configs, availability, state publishes, and the
// two inbound command topics. Connection loss is never fatal: the paho
// client reconnects with capped backoff, and every reconnect replays
// discovery, availability and full state before commands are accepted again.
package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"enclosure-monitor/internal/config"
	"enclosure-monitor/internal/logger"
	"enclosure-monitor/internal/metrics"
	"enclosure-monitor/internal/models"
)

const (
	keepAlive            = 60 * time.Second
	pingTimeout          = 10 * time.Second
	connectRetryInterval = 5 * time.Second
	maxReconnectInterval = 2 * time.Minute
	publishTimeout       = 5 * time.Second
	resyncRetryDelay     = 5 * time.Second
	disconnectQuiesceMs  = 250
	commandBuffer        = 16
)

// conn is the slice of the paho client the gateway needs; tests substitute
// a recorder.
type conn interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// SnapshotFunc returns the current daemon state for the reconnect resync.
type SnapshotFunc func() models.Snapshot

// Deps wires a Gateway.
type Deps struct {
	Device   config.Device
	MQTT     config.MQTT
	Snapshot SnapshotFunc
	Journal  func(models.Event) // optional journal sink
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

// Gateway owns the bus connection. Inbound commands surface on Commands();
// outbound publishes are last-value-wins.
type Gateway struct {
	device   config.Device
	mqttCfg  config.MQTT
	topics   topics
	snapshot SnapshotFunc
	journal  func(models.Event)
	metrics  *metrics.Metrics
	log      *logger.Logger

	conn     conn
	commands chan models.Command

	// resyncGen invalidates retry loops from superseded sessions; the delay
	// is a field so tests can shorten it.
	resyncGen   atomic.Uint64
	resyncDelay time.Duration
}

// New builds a Gateway; Connect starts the connection machinery.
func New(d Deps) *Gateway {
	journal := d.Journal
	if journal == nil {
		journal = func(models.Event) {}
	}
	return &Gateway{
		device:      d.Device,
		mqttCfg:     d.MQTT,
		topics:      buildTopics(d.MQTT.DiscoveryPrefix, d.Device.ID),
		snapshot:    d.Snapshot,
		journal:     journal,
		metrics:     d.Metrics,
		log:         d.Log,
		commands:    make(chan models.Command, commandBuffer),
		resyncDelay: resyncRetryDelay,
	}
}

// Connect starts connecting and returns immediately; the broker being down
// is an operational condition, not an error. The paho client keeps retrying
// the initial connect and every later reconnect with capped backoff.
func (g *Gateway) Connect() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(g.mqttCfg.Broker)
	opts.SetClientID(g.mqttCfg.ClientID)
	if g.mqttCfg.Username != "" {
		opts.SetUsername(g.mqttCfg.Username)
		opts.SetPassword(g.mqttCfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetWill(g.topics.availability, availabilityOffline, g.qos(), true)
	opts.SetOnConnectHandler(g.onConnect)
	opts.SetConnectionLostHandler(g.onConnectionLost)

	client := mqtt.NewClient(opts)
	g.conn = client

	token := client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			g.log.Errorw("bus connect failed", "broker", g.mqttCfg.Broker, "err", err)
		}
	}()
}

// Commands exposes validated inbound commands for the control loop.
func (g *Gateway) Commands() <-chan models.Command {
	return g.commands
}

// IsConnected reports broker connectivity.
func (g *Gateway) IsConnected() bool {
	return g.conn != nil && g.conn.IsConnected()
}

// onConnect runs on every successful (re)connect. Ordering is the contract:
// discovery, then availability, then full state, and only then the command
// subscriptions. The remote side must be rebuilt before it can talk back.
func (g *Gateway) onConnect(mqtt.Client) {
	g.log.Infow("bus connected", "broker", g.mqttCfg.Broker)
	g.metrics.BusReconnects.Inc()
	g.metrics.BusConnected.Set(1)
	g.journal(models.Event{Type: models.EventBus, Description: "broker connected"})

	gen := g.resyncGen.Add(1)
	if err := g.resync(); err != nil {
		g.log.Errorw("bus resync failed, retrying", "err", err)
		go g.retryResync(gen)
	}
}

// retryResync replays the resync sequence until it goes through. A session
// that stays up after a failed resync would otherwise never reach the
// command subscriptions and the daemon would stop hearing remote commands.
// A reconnect or a lost connection bumps the generation and ends the loop;
// the next onConnect starts the sequence over.
func (g *Gateway) retryResync(gen uint64) {
	for {
		time.Sleep(g.resyncDelay)
		if g.resyncGen.Load() != gen || !g.IsConnected() {
			return
		}
		if err := g.resync(); err != nil {
			g.log.Errorw("bus resync failed, retrying", "err", err)
			continue
		}
		g.log.Infow("bus resync recovered")
		return
	}
}

func (g *Gateway) onConnectionLost(_ mqtt.Client, err error) {
	g.resyncGen.Add(1)
	g.log.Warnw("bus connection lost, reconnecting", "err", err)
	g.metrics.BusConnected.Set(0)
	g.journal(models.Event{Type: models.EventBus, Description: "broker connection lost",
		Details: map[string]any{"error": err.Error()}})
}

func (g *Gateway) resync() error {
	if err := g.publishDiscovery(); err != nil {
		return err
	}
	if err := g.publish(g.topics.availability, true, availabilityOnline); err != nil {
		return err
	}
	snap := g.snapshot()
	if snap.Reading != nil {
		if err := g.PublishReading(*snap.Reading); err != nil {
			return err
		}
	}
	if err := g.PublishState(snap.Fan); err != nil {
		return err
	}
	return g.subscribeCommands()
}

// publishDiscovery emits the retained entity configs. Idempotent: the hub
// treats a repeated identical config as a no-op.
func (g *Gateway) publishDiscovery() error {
	for _, d := range g.descriptors() {
		body, err := json.Marshal(d.payload)
		if err != nil {
			return fmt.Errorf("marshal discovery for %s: %w", d.topic, err)
		}
		if err := g.publish(d.topic, true, body); err != nil {
			return fmt.Errorf("publish discovery %s: %w", d.topic, err)
		}
	}
	return nil
}

func (g *Gateway) subscribeCommands() error {
	subs := []struct {
		topic string
		kind  models.CommandKind
	}{
		{g.topics.fanSet, models.CommandFanPower},
		{g.topics.autoModeSet, models.CommandAutoMode},
	}
	for _, s := range subs {
		token := g.conn.Subscribe(s.topic, g.qos(), g.commandHandler(s.kind))
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("subscribe %s: timed out", s.topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.topic, err)
		}
	}
	return nil
}

// commandHandler validates one inbound payload and hands it to the control
// loop. It must never block paho's router: a full channel drops the command
// with a log instead of stalling the connection.
func (g *Gateway) commandHandler(kind models.CommandKind) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		on, err := parsePayload(msg.Payload())
		if err != nil {
			g.metrics.Commands.WithLabelValues("rejected").Inc()
			g.log.Warnw("discarding malformed command",
				"topic", msg.Topic(), "payload", string(msg.Payload()), "err", err)
			return
		}
		select {
		case g.commands <- models.Command{Kind: kind, On: on}:
		default:
			g.metrics.Commands.WithLabelValues("dropped").Inc()
			g.log.Warnw("command channel full, dropping", "kind", kind)
		}
	}
}

// parsePayload accepts ON/OFF, tolerating surrounding whitespace and case.
func parsePayload(payload []byte) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case models.PayloadOn:
		return true, nil
	case models.PayloadOff:
		return false, nil
	default:
		return false, fmt.Errorf("payload must be %q or %q", models.PayloadOn, models.PayloadOff)
	}
}

// PublishReading emits the numeric sensor states, converted to the display
// unit when configured.
func (g *Gateway) PublishReading(r models.Reading) error {
	temp := fmt.Sprintf("%.2f", g.displayTemperature(r.Temperature))
	if err := g.publish(g.topics.temperatureState, g.mqttCfg.Retain, temp); err != nil {
		return err
	}
	return g.publish(g.topics.humidityState, g.mqttCfg.Retain, fmt.Sprintf("%.2f", r.Humidity))
}

// PublishState emits both switch states. Called on every change and as the
// acknowledgment of every handled command.
func (g *Gateway) PublishState(st models.FanState) error {
	if err := g.publish(g.topics.fanState, g.mqttCfg.Retain, st.PowerPayload()); err != nil {
		return err
	}
	return g.publish(g.topics.autoModeState, g.mqttCfg.Retain, st.ModePayload())
}

// Close marks the device unavailable and disconnects. Best effort: a dead
// broker cannot make shutdown fail.
func (g *Gateway) Close() {
	if g.conn == nil {
		return
	}
	if g.conn.IsConnected() {
		if err := g.publish(g.topics.availability, true, availabilityOffline); err != nil {
			g.log.Warnw("could not publish offline availability", "err", err)
		}
	}
	g.conn.Disconnect(disconnectQuiesceMs)
	g.metrics.BusConnected.Set(0)
	g.log.Infow("bus disconnected")
}

// publish sends one message, bounded by publishTimeout. Failures count
// toward the publish error metric and surface to the caller for logging;
// they never escalate further.
func (g *Gateway) publish(topic string, retained bool, payload any) error {
	if g.conn == nil {
		return fmt.Errorf("publish %s: not connected", topic)
	}
	token := g.conn.Publish(topic, g.qos(), retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		g.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish %s: timed out after %v", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		g.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (g *Gateway) qos() byte {
	return byte(g.mqttCfg.QoS)
}
