package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig describes the telemetry identity and optional trace sink.
type ProviderConfig struct {
	// ServiceName identifies the process in exported telemetry.
	// Empty means "vocata".
	ServiceName string

	// ServiceVersion is attached to the telemetry resource when set.
	ServiceVersion string

	// TraceExporter, when non-nil, receives batched spans. Leaving it nil
	// keeps tracing functional in-process (span contexts propagate, log
	// correlation works) without shipping spans anywhere.
	TraceExporter sdktrace.SpanExporter
}

// InitProvider installs the global OpenTelemetry providers: a meter
// provider whose reader is the Prometheus bridge (scraped through the
// app's /metrics handler) and a tracer provider feeding cfg.TraceExporter
// when one is configured.
//
// The returned function shuts both providers down, flushing exporters;
// main defers it with a deadline.
func InitProvider(ctx context.Context, cfg ProviderConfig) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vocata"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	bridge, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(bridge),
	)
	otel.SetMeterProvider(mp)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}
	return shutdown, nil
}
