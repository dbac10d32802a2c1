// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tarotsite"

// Metrics is the set of application collectors bound to one registry.
type Metrics struct {
	registry *prometheus.Registry

	ProviderAttempts  *prometheus.CounterVec
	ProviderDuration  *prometheus.HistogramVec
	Resolutions       *prometheus.CounterVec
	EventsTracked     *prometheus.CounterVec
	SinkDeliveries    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ActiveSessions    prometheus.GaugeFunc
}

// New creates the collectors and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		ProviderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_provider_attempts_total",
			Help:      "Geolocation provider attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geo_provider_duration_seconds",
			Help:      "Latency of geolocation provider attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 2.5, 5},
		}, []string{"provider"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locale_resolutions_total",
			Help:      "Locale decisions by source and market.",
		}, []string{"source", "market"}),
		EventsTracked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_tracked_total",
			Help:      "Tracked events by name.",
		}, []string{"event"}),
		SinkDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_deliveries_total",
			Help:      "Outbound sink payloads by sink and outcome (sent, failed, dropped).",
		}, []string{"sink", "outcome"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of tracked handler operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "success"}),
	}

	registry.MustRegister(
		m.ProviderAttempts,
		m.ProviderDuration,
		m.Resolutions,
		m.EventsTracked,
		m.SinkDeliveries,
		m.OperationDuration,
	)

	return m
}

// RegisterSessionGauge exposes the number of live visitor sessions.
func (m *Metrics) RegisterSessionGauge(count func() int) {
	m.ActiveSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Visitor sessions currently held in the session registry.",
	}, func() float64 { return float64(count()) })
	m.registry.MustRegister(m.ActiveSessions)
}

// ObserveProviderAttempt records one provider attempt.
func (m *Metrics) ObserveProviderAttempt(provider, outcome string, d time.Duration) {
	m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveResolution records one locale decision.
func (m *Metrics) ObserveResolution(source string, isLocal bool) {
	market := "global"
	if isLocal {
		market = "id"
	}
	m.Resolutions.WithLabelValues(source, market).Inc()
}

// ObserveEvent counts one tracked event.
func (m *Metrics) ObserveEvent(name string) {
	m.EventsTracked.WithLabelValues(name).Inc()
}

// ObserveSinkDelivery records the outcome of one outbound sink payload.
func (m *Metrics) ObserveSinkDelivery(sink, outcome string) {
	m.SinkDeliveries.WithLabelValues(sink, outcome).Inc()
}

// ObserveOperation records a completed performance marker.
func (m *Metrics) ObserveOperation(operation string, success bool, d time.Duration) {
	label := "false"
	if success {
		label = "true"
	}
	m.OperationDuration.WithLabelValues(operation, label).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
