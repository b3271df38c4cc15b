package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// TracingConfig holds the configuration for initializing the tracer.
//
// There is no OTLP exporter here: logging only needs a traceId/spanId
// pair to stitch related log lines together (TracingHandler, in
// slog_handler.go), not a shipped trace. SampleRate only sets the sampled
// flag: the SDK assigns a traceId/spanId to sampled and unsampled spans
// alike, so TracingHandler logs both fields either way.
type TracingConfig struct {
	ServiceName string
	SampleRate  float64
}

// InitTracer sets up an OpenTelemetry TracerProvider with no span
// processor attached — spans get IDs assigned but nothing is exported
// anywhere. It returns a shutdown function that should be deferred.
func InitTracer(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
