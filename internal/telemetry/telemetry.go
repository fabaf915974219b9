// Package telemetry sets up OpenTelemetry tracing for resolution runs.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/autoresolve/internal/config"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the tracer provider of the process.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer oteltrace.Tracer
}

// Setup installs a global tracer provider. Spans are exported over OTLP/HTTP
// when an endpoint is configured; otherwise tracing is a no-op. Exporter
// errors are reported through log.
func Setup(ctx context.Context, cfg config.TelemetryConfig, log *logger.Logger, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	if log == nil {
		log = logger.Nop()
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Warn("telemetry: %v", err)
	}))
	otel.SetLogger(logr.FromSlogHandler(logger.NewSlogHandler(log.WithPrefix("otel"))))

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "autoresolve"
	}

	if cfg.OTLPEndpoint == "" && len(opts) == 0 {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(serviceName)}, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	providerOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg.OTLPEndpoint)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
		log.Info("exporting traces to %s", cfg.OTLPEndpoint)
	}
	providerOpts = append(providerOpts, opts...)

	sdk := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(sdk)
	return &Provider{sdk: sdk, tracer: sdk.Tracer(serviceName)}, nil
}

// exporterOptions accepts either a bare host:port or a URL. Plain http URLs
// disable TLS.
func exporterOptions(endpoint string) []otlptracehttp.Option {
	if strings.Contains(endpoint, "://") {
		return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	}
	return []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure()}
}

// Tracer returns the tracer resolution runs should use.
func (p *Provider) Tracer() oteltrace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are recorded.
func (p *Provider) Enabled() bool {
	return p != nil && p.sdk != nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
