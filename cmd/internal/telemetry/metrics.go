// Package telemetry holds chatpad's Prometheus collectors.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without metrics in tests.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Namespace string
	Buckets   []float64
}

type Option func(*Config)

func WithNamespace(ns string) Option { return func(c *Config) { c.Namespace = ns } }

func WithBuckets(b []float64) Option { return func(c *Config) { c.Buckets = b } }

type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	gateRejections  *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
	wsConnections   prometheus.Gauge
	subscribers     prometheus.Gauge
	published       *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	dropped         prometheus.Counter
}

// New registers every collector on a fresh registry, plus Go runtime and
// process collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{Namespace: "chatpad", Buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	ns := cfg.Namespace

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method and status class.",
		}, []string{"method", "class"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: cfg.Buckets,
		}, []string{"method"}),
		gateRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "auth", Name: "gate_rejections_total",
			Help: "Auth gate rejections by variant and failed stage.",
		}, []string{"variant", "reason"}),
		authEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "auth", Name: "events_total",
			Help: "Session issuance outcomes (login, register, refresh, logout).",
		}, []string{"action", "result"}),
		wsConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "ws", Name: "connections",
			Help: "Open WebSocket connections.",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "realtime", Name: "subscribers",
			Help: "Connections subscribed to the broadcast topic.",
		}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "realtime", Name: "messages_published_total",
			Help: "Messages persisted and announced, by source (ws, http).",
		}, []string{"source"}),
		publishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "realtime", Name: "publish_failures_total",
			Help: "Inbound messages that were not announced, by reason.",
		}, []string{"reason"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "realtime", Name: "broadcast_dropped_total",
			Help: "Frames dropped because a subscriber queue was full.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, class string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, class).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) GateRejected(variant, reason string) {
	if m == nil {
		return
	}
	m.gateRejections.WithLabelValues(variant, reason).Inc()
}

func (m *Metrics) AuthEvent(action, result string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(action, result).Inc()
}

func (m *Metrics) WSConnected() {
	if m != nil {
		m.wsConnections.Inc()
	}
}

func (m *Metrics) WSDisconnected() {
	if m != nil {
		m.wsConnections.Dec()
	}
}

func (m *Metrics) SetSubscribers(n int) {
	if m != nil {
		m.subscribers.Set(float64(n))
	}
}

func (m *Metrics) Published(source string) {
	if m != nil {
		m.published.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) PublishFailed(reason string) {
	if m != nil {
		m.publishFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Dropped(n int) {
	if m != nil && n > 0 {
		m.dropped.Add(float64(n))
	}
}
