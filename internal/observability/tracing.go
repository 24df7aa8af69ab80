package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// TracingConfig controls OpenTelemetry setup.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// InitTracing installs a global tracer provider exporting over OTLP/HTTP.
// When tracing is disabled the returned shutdown func is a no-op.
func InitTracing(ctx context.Context, cfg TracingConfig, log zerolog.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop
	}

	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "coursehub"
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(name)))
	if err != nil {
		log.Warn().Err(err).Msg("otel resource init failed (continuing)")
	}

	var opts []otlptracehttp.Option
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(ep))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		log.Warn().Err(err).Msg("otel exporter init failed, tracing disabled")
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().Str("service", name).Str("endpoint", cfg.Endpoint).Msg("otel tracing initialized")
	return tp.Shutdown
}
