// Package middleware provides observers that export what nested
// component trees do to production monitoring.
//
// # OpenTelemetry
//
// Tracer emits a span per dispatch or propagation pass, with a child
// span for every render the pass committed:
//
//	tracer := middleware.NewTracer(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithPassFilter(func(info nested.PassInfo) bool {
//	        return info.EventType != dom.EventMouseMove
//	    }),
//	)
//
// # Prometheus Metrics
//
// Metrics counts passes and renders by outcome and times both:
//
//	metrics := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//	srv.SetObserver(nested.Observers(metrics, tracer))
//	srv.SetMetricsHandler(promhttp.Handler())
package middleware
