// Package tracing wires opt-in OpenTelemetry tracing for HTTP services.
package tracing

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Environment variables controlling the exporter.
const (
	enabledVar  = "VIEWKIT_OTEL_ENABLED"
	endpointVar = "VIEWKIT_OTEL_ENDPOINT"
)

// Setup configures OpenTelemetry tracing for the named service.
//
// Tracing is opt-in: when VIEWKIT_OTEL_ENDPOINT is empty or
// VIEWKIT_OTEL_ENABLED is "false", Setup returns a no-op shutdown function
// and no global provider is registered.
//
// The returned shutdown function flushes pending spans and should be
// deferred by the caller.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	endpoint, ok := exporterEndpoint()
	if !ok {
		return noopShutdown, nil
	}

	provider, err := newProvider(ctx, serviceName, endpoint)
	if err != nil {
		return noopShutdown, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return provider.Shutdown, nil
}

func noopShutdown(context.Context) error { return nil }

// exporterEndpoint reports the configured OTLP endpoint and whether tracing
// should be wired at all.
func exporterEndpoint() (string, bool) {
	if strings.EqualFold(os.Getenv(enabledVar), "false") {
		return "", false
	}
	endpoint := os.Getenv(endpointVar)
	return endpoint, endpoint != ""
}

// newProvider builds a batching tracer provider that exports spans over
// OTLP/HTTP and tags them with the service name.
func newProvider(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return tp, nil
}
