// Package observability provides OpenTelemetry tracing and metrics for
// relay API requests.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/clovertg/pkg/config"
)

const instrumentationName = "github.com/kart-io/clovertg"

// Provider provides tracing and metrics for the transport.
// A disabled Provider uses the global (by default no-op) OpenTelemetry
// providers, so it is always safe to call.
type Provider struct {
	config        config.TelemetryConfig
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	requests        metric.Int64Counter
	requestsFailed  metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewProvider creates a telemetry provider. When cfg.Enabled is false no
// exporter is created.
func NewProvider(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	p := &Provider{config: cfg}

	if cfg.Enabled {
		if err := p.initTracing(ctx); err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	} else {
		p.tracer = otel.Tracer(instrumentationName)
	}

	p.meter = otel.Meter(instrumentationName, metric.WithSchemaURL(semconv.SchemaURL))
	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

// Noop returns a provider backed by the global OpenTelemetry providers.
func Noop() *Provider {
	p, err := NewProvider(context.Background(), config.TelemetryConfig{})
	if err != nil {
		// Instrument creation on the global meter does not fail.
		return &Provider{tracer: otel.Tracer(instrumentationName)}
	}
	return p
}

func (p *Provider) initTracing(ctx context.Context) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(p.config.ServiceName),
			semconv.ServiceVersion(p.config.ServiceVersion),
			semconv.DeploymentEnvironment(p.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(p.config.OTLPEndpoint),
	}
	if len(p.config.OTLPHeaders) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(p.config.OTLPHeaders))
	}
	if p.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	p.traceProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.SampleRate))),
	)
	otel.SetTracerProvider(p.traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tracer = p.traceProvider.Tracer(instrumentationName,
		trace.WithInstrumentationVersion(p.config.ServiceVersion),
		trace.WithSchemaURL(semconv.SchemaURL),
	)
	return nil
}

func (p *Provider) initMetrics() error {
	var err error

	p.requests, err = p.meter.Int64Counter(
		"clovertg_requests_total",
		metric.WithDescription("Total number of relay API requests"),
	)
	if err != nil {
		return fmt.Errorf("create requests counter: %w", err)
	}

	p.requestsFailed, err = p.meter.Int64Counter(
		"clovertg_requests_failed_total",
		metric.WithDescription("Total number of failed relay API requests"),
	)
	if err != nil {
		return fmt.Errorf("create requests_failed counter: %w", err)
	}

	p.requestDuration, err = p.meter.Float64Histogram(
		"clovertg_request_duration_seconds",
		metric.WithDescription("Duration of relay API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create request_duration histogram: %w", err)
	}

	return nil
}

// TraceRequest starts a client span for a request to path.
func (p *Provider) TraceRequest(ctx context.Context, path string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	if p != nil && p.tracer != nil {
		tracer = p.tracer
	}
	return tracer.Start(ctx, "clovertg "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("clovertg.path", path),
			attribute.String("http.request.method", http.MethodPost),
		),
	)
}

// RecordSuccess records a completed request and marks the span ok.
func (p *Provider) RecordSuccess(ctx context.Context, span trace.Span, path string, status int, duration time.Duration) {
	if p == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("status", "success"),
	)
	if p.requests != nil {
		p.requests.Add(ctx, 1, attrs)
	}
	if p.requestDuration != nil {
		p.requestDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if span != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		span.SetStatus(codes.Ok, "")
	}
}

// RecordFailure records a failed request of the given kind and marks the span.
func (p *Provider) RecordFailure(ctx context.Context, span trace.Span, path, kind string, err error, duration time.Duration) {
	if p == nil {
		return
	}
	if p.requests != nil {
		p.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("path", path),
			attribute.String("status", "error"),
		))
	}
	if p.requestsFailed != nil {
		p.requestsFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("path", path),
			attribute.String("kind", kind),
		))
	}
	if p.requestDuration != nil {
		p.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("path", path),
			attribute.String("status", "error"),
		))
	}
	if span != nil && err != nil {
		span.SetAttributes(attribute.String("error.type", kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// HTTPClient returns an http.Client whose transport emits client spans and
// propagates trace context.
func (p *Provider) HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.traceProvider != nil
}

// Shutdown flushes and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p != nil && p.traceProvider != nil {
		return p.traceProvider.Shutdown(ctx)
	}
	return nil
}
