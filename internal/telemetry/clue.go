package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	cluelog "goa.design/clue/log"
)

type (
	// clueLogger delegates to goa.design/clue/log, the teacher's structured
	// logging library. It reads format/debug settings from the context, set
	// up once at process start via cluelog.Context.
	clueLogger struct{}

	// otelMetrics records counters, timers, and gauges through the global
	// OTEL MeterProvider. Configure the provider before constructing this
	// (typically via clue.ConfigureOpenTelemetry or OTEL_EXPORTER_* env vars).
	otelMetrics struct {
		meter metric.Meter
	}

	// otelTracer starts spans through the global OTEL TracerProvider.
	otelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewClueLogger constructs a Logger backed by goa.design/clue/log.
func NewClueLogger() Logger { return clueLogger{} }

// NewOTELMetrics constructs a Metrics recorder backed by the global OTEL
// meter provider, scoped under the given instrumentation name.
func NewOTELMetrics(instrumentationName string) Metrics {
	return &otelMetrics{meter: otel.Meter(instrumentationName)}
}

// NewOTELTracer constructs a Tracer backed by the global OTEL tracer
// provider, scoped under the given instrumentation name.
func NewOTELTracer(instrumentationName string) Tracer {
	return &otelTracer{tracer: otel.Tracer(instrumentationName)}
}

func (clueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	cluelog.Debug(ctx, msg, toClueKV(keyvals)...)
}

func (clueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	cluelog.Info(ctx, msg, toClueKV(keyvals)...)
}

func (clueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	cluelog.Error(ctx, msg, toClueKV(keyvals)...)
}

func (clueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	cluelog.Error(ctx, msg, toClueKV(keyvals)...)
}

func toClueKV(keyvals []any) []cluelog.KV {
	kvs := make([]cluelog.KV, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		k, _ := keyvals[i].(string)
		kvs = append(kvs, cluelog.KV{K: k, V: keyvals[i+1]})
	}
	return kvs
}

func (m *otelMetrics) IncCounter(name string, value float64, labels ...string) {
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	c.Add(context.Background(), value, metric.WithAttributes(toAttrs(labels)...))
}

func (m *otelMetrics) RecordTimer(name string, d time.Duration, labels ...string) {
	h, err := m.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return
	}
	h.Record(context.Background(), float64(d.Milliseconds()), metric.WithAttributes(toAttrs(labels)...))
}

func (m *otelMetrics) RecordGauge(name string, value float64, labels ...string) {
	g, err := m.meter.Float64Gauge(name)
	if err != nil {
		return
	}
	g.Record(context.Background(), value, metric.WithAttributes(toAttrs(labels)...))
}

func toAttrs(labels []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}
	return attrs
}

func (t *otelTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}

func (s *otelSpan) AddEvent(name string, keyvals ...any) {
	s.span.AddEvent(name, trace.WithAttributes(toAttrs(keyvalsToStrings(keyvals))...))
}

func keyvalsToStrings(keyvals []any) []string {
	out := make([]string, 0, len(keyvals))
	for _, kv := range keyvals {
		if s, ok := kv.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, "")
	}
	return out
}
