// Package metrics exposes prometheus collectors for refreshes, replays and
// forced logouts. A nil *Metrics is valid and records nothing.
package metrics

import (
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "authsession"

type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	replayTotal     *prometheus.CounterVec
	forcedLogout    *prometheus.CounterVec
	queueDepth      prometheus.Gauge
}

// Option configures the registry.
type Option func(*Metrics)

// WithGoCollector registers go runtime metrics.
func WithGoCollector() Option {
	return func(m *Metrics) {
		m.registry.MustRegister(collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/.*")}),
		))
	}
}

// WithBuildInfo registers the build info collector.
func WithBuildInfo() Option {
	return func(m *Metrics) {
		m.registry.MustRegister(collectors.NewBuildInfoCollector())
	}
}

// New creates collectors on a fresh registry.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh calls by outcome.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh network calls.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}),
		replayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_total",
			Help:      "Requests replayed after a 401, by result.",
		}, []string{"result"}),
		forcedLogout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_logout_total",
			Help:      "Sessions cleared without user action, by reason.",
		}, []string{"reason"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Requests waiting for an in-flight refresh.",
		}),
	}
	m.registry.MustRegister(m.refreshTotal, m.refreshDuration, m.replayTotal, m.forcedLogout, m.queueDepth)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the registry to serve.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Refresh counts one refresh outcome.
func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(outcome).Inc()
}

// RefreshDuration observes one network refresh.
func (m *Metrics) RefreshDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.refreshDuration.Observe(d.Seconds())
}

// Replay counts one replayed or rejected waiter.
func (m *Metrics) Replay(result string) {
	if m == nil {
		return
	}
	m.replayTotal.WithLabelValues(result).Inc()
}

// ForcedLogout counts one forced logout.
func (m *Metrics) ForcedLogout(reason string) {
	if m == nil {
		return
	}
	m.forcedLogout.WithLabelValues(reason).Inc()
}

// QueueDepth sets the number of waiting requests.
func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
