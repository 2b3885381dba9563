package middleware

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/kinesis/pkg/nested"
)

// MetricsConfig configures the Prometheus metrics observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "kinesis").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass and render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "kinesis",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a nested.Observer that records Prometheus metrics.
//
// Metrics collected:
//   - kinesis_passes_total: passes by kind, event type and outcome
//   - kinesis_pass_duration_seconds: pass duration by kind
//   - kinesis_renders_total: committed renders by scope kind and outcome
//   - kinesis_render_duration_seconds: render duration by scope kind
//   - kinesis_active_sessions: live host sessions
//
// One Metrics value can observe many trees.
type Metrics struct {
	passesTotal    *prometheus.CounterVec
	passDuration   *prometheus.HistogramVec
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

var _ nested.Observer = (*Metrics)(nil)

// NewMetrics registers the metrics and returns the observer. It panics if
// the metrics are already registered with the registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of dispatch and propagation passes",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "event_type", "outcome"}),

		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Pass duration in seconds, including renders",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of committed renders",
			ConstLabels: config.ConstLabels,
		}, []string{"scope", "outcome"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"scope"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObservePass implements nested.Observer.
func (m *Metrics) ObservePass(info nested.PassInfo) {
	kind := info.Kind.String()
	eventType := "none"
	if info.Kind == nested.PassDispatch {
		eventType = info.EventType.String()
	}
	m.passesTotal.WithLabelValues(kind, eventType, passOutcome(info)).Inc()
	m.passDuration.WithLabelValues(kind).Observe(info.Duration.Seconds())
}

// ObserveRender implements nested.Observer.
func (m *Metrics) ObserveRender(info nested.RenderInfo) {
	scope := scopeKind(info)
	outcome := "ok"
	switch {
	case info.Err != nil:
		outcome = categorizeError(info.Err)
	case !info.Present:
		outcome = "empty"
	}
	m.rendersTotal.WithLabelValues(scope, outcome).Inc()
	m.renderDuration.WithLabelValues(scope).Observe(info.Duration.Seconds())
}

// SessionOpened records a new host session.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Inc()
}

// SessionClosed records the end of a host session.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Dec()
}

func scopeKind(info nested.RenderInfo) string {
	if info.Scope.IsRoot() {
		return "root"
	}
	return "partial"
}

func passOutcome(info nested.PassInfo) string {
	switch {
	case info.Err != nil:
		return categorizeError(info.Err)
	case !info.Reported:
		return "unchanged"
	default:
		return "ok"
	}
}

// categorizeError keeps the outcome label low-cardinality.
func categorizeError(err error) string {
	var sink *nested.SinkError
	switch {
	case errors.As(err, &sink):
		return "sink"
	case errors.Is(err, nested.ErrUnresolvedIdentifier):
		return "unresolved"
	case errors.Is(err, nested.ErrIndexOutOfRange):
		return "out_of_range"
	case errors.Is(err, nested.ErrComponentPanic):
		return "panic"
	case errors.Is(err, nested.ErrBusy):
		return "busy"
	default:
		return "internal"
	}
}
