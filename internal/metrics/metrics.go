// Package metrics exposes prometheus collectors for voice cloning and
// conversation turns. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cheongeum"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	cloneOutcomes   *prometheus.CounterVec
	activeVoices    prometheus.Gauge
	cleanupFailures prometheus.Counter
	turnOutcomes    *prometheus.CounterVec
}

// New constructs and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cloneOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_clone_total",
			Help:      "Voice clone pipeline runs by outcome.",
		}, []string{"outcome"}),
		activeVoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ephemeral_voices_active",
			Help:      "Ephemeral provider voices created and not yet released.",
		}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_cleanup_failures_total",
			Help:      "Ephemeral voice deletions that failed.",
		}),
		turnOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_turns_total",
			Help:      "Conversation turns by path and result code.",
		}, []string{"path", "code"}),
	}

	m.registry.MustRegister(
		m.cloneOutcomes,
		m.activeVoices,
		m.cleanupFailures,
		m.turnOutcomes,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveClone records the outcome of one clone pipeline run.
func (m *Metrics) ObserveClone(outcome string) {
	if m == nil {
		return
	}
	m.cloneOutcomes.WithLabelValues(outcome).Inc()
}

// VoiceAcquired increments the active ephemeral voice gauge.
func (m *Metrics) VoiceAcquired() {
	if m == nil {
		return
	}
	m.activeVoices.Inc()
}

// VoiceReleased decrements the active ephemeral voice gauge. A failed release
// is counted separately; the gauge still drops because no retry is attempted.
func (m *Metrics) VoiceReleased(failed bool) {
	if m == nil {
		return
	}
	m.activeVoices.Dec()
	if failed {
		m.cleanupFailures.Inc()
	}
}

// ObserveTurn records a conversation turn. code is "ok" or the turn error code.
func (m *Metrics) ObserveTurn(path, code string) {
	if m == nil {
		return
	}
	m.turnOutcomes.WithLabelValues(path, code).Inc()
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
