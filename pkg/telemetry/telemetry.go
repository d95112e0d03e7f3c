package telemetry

import (
	"context"
	"os"

	"fuzzrun/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
)

const endpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Telemetry hands out the tracer used to span a run and its per-target
// executions.
type Telemetry interface {
	Tracer() trace.Tracer
}

type telemetryImpl struct {
	tracer trace.Tracer
}

func (t *telemetryImpl) Tracer() trace.Tracer {
	return t.tracer
}

// NewNop returns a Telemetry whose spans are discarded.
func NewNop(serviceName string) Telemetry {
	return &telemetryImpl{tracer: noop.NewTracerProvider().Tracer(serviceName)}
}

type Params struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.AppConfig
}

// NewTelemetry sets up OTLP tracing when an exporter endpoint is configured
// in the environment. Without one, spans are no-ops and no collector
// connection is attempted.
func NewTelemetry(p Params) (Telemetry, error) {
	if os.Getenv(endpointEnv) == "" {
		return NewNop(p.Config.ServiceName), nil
	}

	telemetryCtx, cancel := context.WithCancel(context.Background())
	exporter, err := otlptracegrpc.New(telemetryCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			attribute.String("service.name", p.Config.ServiceName),
		)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cancel()
			return provider.Shutdown(ctx)
		},
	})

	return &telemetryImpl{tracer: provider.Tracer(p.Config.ServiceName)}, nil
}
