package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gallon-leak-watch/internal/monitor"
)

// Metrics exposes the monitor's runtime counters and gauges on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	ticks           prometheus.Counter
	readFailures    prometheus.Counter
	leaksConfirmed  prometheus.Counter
	currentPressure prometheus.Gauge
	dropPct         prometheus.Gauge
	elapsedSeconds  prometheus.Gauge
}

// New builds the metric set and registers it.
func New() *Metrics {
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gallonwatch_sample_ticks_total",
		Help: "Completed sampling ticks across all sessions.",
	})
	readFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gallonwatch_read_failures_total",
		Help: "Sensor reads that failed and contributed a zero sentinel.",
	})
	leaksConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gallonwatch_leaks_confirmed_total",
		Help: "Leak confirmations across all sessions.",
	})
	currentPressure := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gallonwatch_smoothed_pressure",
		Help: "Smoothed pressure of the most recent tick.",
	})
	dropPct := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gallonwatch_pressure_drop_pct",
		Help: "Pressure drop percentage versus baseline at the most recent tick.",
	})
	elapsedSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gallonwatch_session_elapsed_seconds",
		Help: "Elapsed monitoring time of the active session.",
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(ticks, readFailures, leaksConfirmed, currentPressure, dropPct, elapsedSeconds)

	return &Metrics{
		registry:        registry,
		ticks:           ticks,
		readFailures:    readFailures,
		leaksConfirmed:  leaksConfirmed,
		currentPressure: currentPressure,
		dropPct:         dropPct,
		elapsedSeconds:  elapsedSeconds,
	}
}

// Registry exposes the backing registry for HTTP handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSample folds one completed tick into the metric set.
func (m *Metrics) ObserveSample(sample monitor.Sample) {
	m.ticks.Inc()
	if sample.Failed {
		m.readFailures.Inc()
	}
	m.currentPressure.Set(sample.Smoothed)
	m.dropPct.Set(sample.DropPct)
	m.elapsedSeconds.Set(sample.Elapsed.Seconds())
}

// ObserveLeakConfirmed counts a confirmed leak.
func (m *Metrics) ObserveLeakConfirmed() {
	m.leaksConfirmed.Inc()
}
