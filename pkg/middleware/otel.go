package middleware

import (
	"context"
	"strconv"
	"sync"

	"github.com/vango-dev/kinesis/pkg/nested"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for Kinesis trees.
const defaultTracerName = "kinesis"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "kinesis").
	TracerName string

	// Provider supplies the tracer. Default: the global tracer provider.
	Provider trace.TracerProvider

	// Filter determines which passes to trace.
	// Return true to trace the pass, false to skip.
	// If nil, all passes are traced.
	Filter func(info nested.PassInfo) bool

	// AttributeExtractor adds custom attributes to pass spans.
	AttributeExtractor func(info nested.PassInfo) []attribute.KeyValue

	// Attributes are added to every span, e.g. a session ID.
	Attributes []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.Provider = tp
	}
}

// WithPassFilter sets a filter function for passes.
func WithPassFilter(filter func(info nested.PassInfo) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(info nested.PassInfo) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// Tracer is a nested.Observer that emits one span per pass, with a child
// span for each render the pass committed.
//
// Observers are notified after the fact, so spans carry the recorded
// start and end timestamps rather than wall-clock time at emission.
// Renders are reported before the pass that issued them; the tracer
// holds them until that pass is observed.
type Tracer struct {
	config OTelConfig
	tracer trace.Tracer

	mu      sync.Mutex
	pending []nested.RenderInfo
}

var _ nested.Observer = (*Tracer)(nil)

// NewTracer creates a tracing observer.
//
// Configure the global provider in main() before starting the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func NewTracer(opts ...OTelOption) *Tracer {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	provider := config.Provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{
		config: config,
		tracer: provider.Tracer(config.TracerName),
	}
}

// ObserveRender implements nested.Observer.
func (t *Tracer) ObserveRender(info nested.RenderInfo) {
	t.mu.Lock()
	t.pending = append(t.pending, info)
	t.mu.Unlock()
}

// ObservePass implements nested.Observer.
func (t *Tracer) ObservePass(info nested.PassInfo) {
	t.mu.Lock()
	renders := t.pending
	t.pending = nil
	t.mu.Unlock()

	if t.config.Filter != nil && !t.config.Filter(info) {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("kinesis.pass", info.Kind.String()),
		attribute.String("kinesis.target", info.Target.String()),
		attribute.Bool("kinesis.changed", info.Reported),
		attribute.Int("kinesis.render_count", len(info.Scopes)),
	}
	if info.Kind == nested.PassDispatch {
		attrs = append(attrs, attribute.String("kinesis.event_type", info.EventType.String()))
	}
	if len(info.Changed) > 0 {
		attrs = append(attrs, attribute.IntSlice("kinesis.changed_indices", info.Changed))
	}
	attrs = append(attrs, t.config.Attributes...)
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(info)...)
	}

	ctx, span := t.tracer.Start(context.Background(), spanName(info),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(info.Start),
	)

	for _, r := range renders {
		t.renderSpan(ctx, r)
	}

	if info.Err != nil {
		span.RecordError(info.Err)
		span.SetStatus(codes.Error, info.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(info.Start.Add(info.Duration)))
}

func (t *Tracer) renderSpan(ctx context.Context, info nested.RenderInfo) {
	attrs := []attribute.KeyValue{
		attribute.String("kinesis.node", info.Node.String()),
		attribute.String("kinesis.scope", scopeLabel(info)),
		attribute.Bool("kinesis.present", info.Present),
		attribute.Int("kinesis.items", info.Items),
	}
	attrs = append(attrs, t.config.Attributes...)
	_, span := t.tracer.Start(ctx, "kinesis.render",
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(info.Start),
	)
	if info.Err != nil {
		span.RecordError(info.Err)
		span.SetStatus(codes.Error, info.Err.Error())
	}
	span.End(trace.WithTimestamp(info.Start.Add(info.Duration)))
}

func spanName(info nested.PassInfo) string {
	if info.Kind == nested.PassDispatch {
		return "kinesis.dispatch " + info.EventType.String()
	}
	return "kinesis.propagate"
}

// scopeLabel formats a render scope for span attributes.
func scopeLabel(info nested.RenderInfo) string {
	if i, ok := info.Scope.Index(); ok {
		return "partial:" + strconv.Itoa(i)
	}
	return "root"
}
