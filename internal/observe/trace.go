package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope under which all assistant spans
// are recorded.
const tracerName = "github.com/vocata-ai/vocata"

// Tracer resolves the assistant's tracer from whatever TracerProvider is
// currently registered globally.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a span named after the operation, typically one per
// conversation turn. End the returned span when the operation finishes.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// Logger returns the default slog logger, with trace_id and span_id
// attached when ctx carries an active span so log lines can be correlated
// with traces.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
