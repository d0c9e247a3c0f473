package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
)

// InstrumentationName identifies spans and instruments created by the tools
const InstrumentationName = "github.com/bstolzenburg/Ag-Methane-Programs"

// Telemetry holds the tracer and meter for one tool run
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Metrics        *PipelineMetrics

	metricsFile string
	traceFile   *os.File
	logger      *slog.Logger
}

// InitializeTelemetry sets up tracing and metrics for a tool. Metrics are always
// collected into a private registry; they only leave the process through the
// textfile written at Shutdown.
func InitializeTelemetry(cfg config.TelemetryConfig, tool string, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		attribute.String("tool", tool),
	)

	t := &Telemetry{
		Registry:    prometheus.NewRegistry(),
		metricsFile: cfg.MetricsFile,
		logger:      logger,
	}

	if err := t.initTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.MeterProvider.Meter(InstrumentationName)

	t.Metrics, err = NewPipelineMetrics(t.Meter, tool)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	logger.Debug("Telemetry initialized",
		slog.String("tool", tool),
		slog.String("tracing", cfg.Tracing),
		slog.String("metrics_file", cfg.MetricsFile))

	return t, nil
}

func (t *Telemetry) initTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	var w io.Writer
	opts := []stdouttrace.Option{}

	switch cfg.Tracing {
	case "", "none":
		t.Tracer = noop.NewTracerProvider().Tracer(InstrumentationName)
		return nil
	case "stdout":
		w = os.Stdout
		opts = append(opts, stdouttrace.WithPrettyPrint())
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		t.traceFile = f
		w = f
	default:
		return fmt.Errorf("unsupported tracing mode: %s", cfg.Tracing)
	}

	exporter, err := stdouttrace.New(append(opts, stdouttrace.WithWriter(w))...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Batch tools are short lived; spans are flushed by Shutdown
	t.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Tracer = t.TracerProvider.Tracer(InstrumentationName)
	return nil
}

// StartSpan starts a span for one pipeline stage
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.Tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := t.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	if runID := GetTraceID(ctx); runID != "" {
		span.SetAttributes(attribute.String("run.id", runID))
	}
	return ctx, span
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// WriteMetrics writes the registry in Prometheus text format to the configured file
func (t *Telemetry) WriteMetrics() error {
	if t.metricsFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(t.metricsFile, t.Registry)
}

// Shutdown writes the metrics textfile then flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if err := t.WriteMetrics(); err != nil {
		errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
