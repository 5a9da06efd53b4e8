// Package metrics exposes the daemon's Prometheus collectors. Everything
// lives on a private registry so tests never collide through global state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "enclosure"

// Metrics bundles the collectors updated by the control loop and gateway.
type Metrics struct {
	registry *prometheus.Registry

	Temperature  prometheus.Gauge
	Humidity     prometheus.Gauge
	FanOn        prometheus.Gauge
	AutoMode     prometheus.Gauge
	BusConnected prometheus.Gauge

	Ticks          prometheus.Counter
	SensorErrors   *prometheus.CounterVec // kind: unavailable | out_of_range
	FanTransitions *prometheus.CounterVec // reason: CRITICAL | MAX_RUNTIME | AUTO_ON | AUTO_OFF | MANUAL
	Commands       *prometheus.CounterVec // result: applied | rejected | dropped
	BusReconnects  prometheus.Counter
	PublishErrors  prometheus.Counter
}

// New builds the collectors on a fresh registry, including the standard Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		Temperature: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "temperature_celsius",
			Help: "Last known-good enclosure temperature.",
		}),
		Humidity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "humidity_percent",
			Help: "Last known-good relative humidity.",
		}),
		FanOn: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fan_on",
			Help: "Fan power: 1 running, 0 stopped.",
		}),
		AutoMode: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "auto_mode",
			Help: "Control mode: 1 AUTO, 0 MANUAL.",
		}),
		BusConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bus_connected",
			Help: "Broker connectivity: 1 connected, 0 not.",
		}),

		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Control loop ticks executed.",
		}),
		SensorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sensor_errors_total",
			Help: "Failed sensor polls by kind.",
		}, []string{"kind"}),
		FanTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fan_transitions_total",
			Help: "Fan power changes by reason.",
		}, []string{"reason"}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "Inbound bus commands by result.",
		}, []string{"result"}),
		BusReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bus_reconnects_total",
			Help: "Broker (re)connects observed.",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "publish_errors_total",
			Help: "Failed outbound publishes.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
