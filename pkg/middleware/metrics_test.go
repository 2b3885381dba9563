package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/vtest"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsObservesTree(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	root := vtest.NewProbe("root").Returns([]int{0, 1}, true)
	child := vtest.NewProbe("child")
	tree := nested.New(root, nested.WithObserver(m))
	tree.MustChild(0, child)
	tree.MustChild(1, vtest.NewProbe("other"))

	if err := tree.Dispatch(component.Root(), dom.EventClick, nil); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := tree.Dispatch(component.NewIdentifier(0), dom.EventClick, nil); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := tree.Dispatch(component.NewIdentifier(7), dom.EventInput, nil); err == nil {
		t.Fatal("Dispatch() to missing node succeeded")
	}

	if got := metricCounterValue(t, m.passesTotal.WithLabelValues("dispatch", "Click", "ok")); got != 1 {
		t.Errorf("passes_total(ok) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.passesTotal.WithLabelValues("dispatch", "Click", "unchanged")); got != 1 {
		t.Errorf("passes_total(unchanged) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.passesTotal.WithLabelValues("dispatch", "Input", "unresolved")); got != 1 {
		t.Errorf("passes_total(unresolved) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.rendersTotal.WithLabelValues("partial", "ok")); got != 2 {
		t.Errorf("renders_total(partial) = %v, want 2", got)
	}
	if got := metricHistogramCount(t, m.passDuration.WithLabelValues("dispatch")); got != 3 {
		t.Errorf("pass_duration_seconds count = %v, want 3", got)
	}
	if got := metricHistogramCount(t, m.renderDuration.WithLabelValues("partial")); got != 2 {
		t.Errorf("render_duration_seconds count = %v, want 2", got)
	}
}

func TestMetricsRenderOutcomes(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.ObserveRender(nested.RenderInfo{Scope: component.RenderRoot(), Present: false})
	m.ObserveRender(nested.RenderInfo{
		Scope: component.RenderRoot(),
		Err:   &nested.SinkError{Err: errors.New("closed")},
	})

	if got := metricCounterValue(t, m.rendersTotal.WithLabelValues("root", "empty")); got != 1 {
		t.Errorf("renders_total(empty) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.rendersTotal.WithLabelValues("root", "sink")); got != 1 {
		t.Errorf("renders_total(sink) = %v, want 1", got)
	}
}

func TestMetricsPropagatePass(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	m.ObservePass(nested.PassInfo{Kind: nested.PassPropagate, Reported: true, Duration: time.Millisecond})
	if got := metricCounterValue(t, m.passesTotal.WithLabelValues("propagate", "none", "ok")); got != 1 {
		t.Errorf("passes_total(propagate) = %v, want 1", got)
	}
}

func TestMetricsSessions(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	if got := metricGaugeValue(t, m.activeSessions); got != 1 {
		t.Errorf("active_sessions = %v, want 1", got)
	}
}

func TestMetricsDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))
	defer func() {
		if recover() == nil {
			t.Error("second NewMetrics on the same registry did not panic")
		}
	}()
	NewMetrics(WithRegistry(reg))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&nested.UnresolvedIdentifierError{Target: component.NewIdentifier(1)}, "unresolved"},
		{&nested.IndexOutOfRangeError{}, "out_of_range"},
		{&nested.HandlerError{}, "panic"},
		{&nested.RenderError{}, "panic"},
		{nested.ErrBusy, "busy"},
		{&nested.SinkError{Err: nested.ErrBusy}, "sink"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range tests {
		if got := categorizeError(tc.err); got != tc.want {
			t.Errorf("categorizeError(%T) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
