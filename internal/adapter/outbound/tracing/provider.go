// Package tracing wires an OpenTelemetry TracerProvider for the runtime,
// following the resource+provider+shutdown-function shape of the
// retrieval pack's sentrie-sh-sentrie/otel/provider.go, but with the
// stdout exporters (SPEC_FULL.md §3: "the teacher-grade default for a
// self-contained OSS binary with no external collector configured")
// instead of that repo's OTLP exporters.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ShutdownFunc flushes and closes every provider InitProvider started.
type ShutdownFunc func(context.Context) error

// InitProvider sets up the global TracerProvider and MeterProvider with
// stdout exporters and returns a function to flush and shut them down.
func InitProvider(serviceName string) (ShutdownFunc, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("create stdout metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	otel.SetMeterProvider(meterProvider)

	return func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shut down tracer provider: %w", err)
		}
		return meterProvider.Shutdown(ctx)
	}, nil
}

// Tracer returns the named tracer used to open evaluation spans (one per
// top-level Runtime.Evaluate call; nested rule() calls open no spans of
// their own, SPEC_FULL.md §3).
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns the named OpenTelemetry meter, the otel-native counterpart
// to internal/adapter/outbound/metrics's Prometheus instruments: both
// observe the same evaluation events, one for a local /metrics scrape, one
// for whatever collector InitProvider's stdout exporter feeds.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}
