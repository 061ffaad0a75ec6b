// Package telemetry defines the logging, tracing, and metrics interfaces the
// core depends on. Concrete implementations live in this package (Clue/OTEL
// for production, no-op for tests and library consumers that don't wire
// observability); the packages that log or trace (manager, intent,
// llmclient, broadcaster) accept these interfaces at construction time and
// never reach for a global logger.
package telemetry

import (
	"context"
	"time"
)

type (
	// Logger emits structured log messages. Keyvals follow the
	// alternating-key-value convention used throughout goa.design/clue/log.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges. Labels are flattened
	// key-value pairs, consistent across the counter/timer/gauge calls so a
	// single metrics backend can be swapped in without touching call sites.
	Metrics interface {
		IncCounter(name string, value float64, labels ...string)
		RecordTimer(name string, d time.Duration, labels ...string)
		RecordGauge(name string, value float64, labels ...string)
	}

	// Tracer starts spans. Start returns a context carrying the new span so
	// nested Start calls produce a proper parent/child chain.
	Tracer interface {
		Start(ctx context.Context, name string) (context.Context, Span)
	}

	// Span is one unit of traced work.
	Span interface {
		End()
		SetError(err error)
		AddEvent(name string, keyvals ...any)
	}
)
