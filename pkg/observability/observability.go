package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/milan604/reqfacade/pkg/config"
	"github.com/milan604/reqfacade/pkg/logger"
	"github.com/milan604/reqfacade/pkg/version"
)

// Tracing owns the tracer provider handed to the http client.
type Tracing struct {
	tracerProvider *sdktrace.TracerProvider
	log            logger.LogManager
}

// NewTracing exports spans over OTLP/HTTP to the endpoint configured under
// otel.endpoint. It returns (nil, nil) when no endpoint is configured.
func NewTracing(ctx context.Context, log logger.LogManager, cfg *config.Config) (*Tracing, error) {
	endpoint := cfg.GetString(config.KeyOTelEndpoint)
	if endpoint == "" {
		return nil, nil
	}
	serviceName := cfg.GetStringD(config.KeyServiceName, version.Product)

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return newTracing(log, serviceName, sdktrace.WithBatcher(exporter))
}

func newTracing(log logger.LogManager, serviceName string, opts ...sdktrace.TracerProviderOption) (*Tracing, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}, opts...)...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.DebugF("tracing initialized: service=%s version=%s", serviceName, version.Version)
	return &Tracing{tracerProvider: tp, log: log}, nil
}

// TracerProvider returns the provider for http.WithTracerProvider.
func (t *Tracing) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		t.log.ErrorF("failed to shutdown tracer provider: %v", err)
		return err
	}
	return nil
}
