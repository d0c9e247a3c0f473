package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics counts what a tool run moved through its stages
type PipelineMetrics struct {
	tool attribute.KeyValue

	filesProcessed metric.Int64Counter
	rowsProcessed  metric.Int64Counter
	pointsWritten  metric.Int64Counter
	errors         metric.Int64Counter
	stageDuration  metric.Float64Histogram
	lastSuccess    metric.Float64Gauge
}

// NewPipelineMetrics creates the run instruments on meter
func NewPipelineMetrics(meter metric.Meter, tool string) (*PipelineMetrics, error) {
	m := &PipelineMetrics{tool: attribute.String("tool", tool)}
	var err error

	if m.filesProcessed, err = meter.Int64Counter(
		"agm_files_processed",
		metric.WithDescription("Files read, downloaded, copied or written"),
	); err != nil {
		return nil, err
	}

	if m.rowsProcessed, err = meter.Int64Counter(
		"agm_rows_processed",
		metric.WithDescription("Table rows shaped or written"),
	); err != nil {
		return nil, err
	}

	if m.pointsWritten, err = meter.Int64Counter(
		"agm_points_written",
		metric.WithDescription("Points handed to the time-series writer"),
	); err != nil {
		return nil, err
	}

	if m.errors, err = meter.Int64Counter(
		"agm_errors",
		metric.WithDescription("Per-item failures that were logged and skipped"),
	); err != nil {
		return nil, err
	}

	if m.stageDuration, err = meter.Float64Histogram(
		"agm_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.lastSuccess, err = meter.Float64Gauge(
		"agm_last_success_timestamp_seconds",
		metric.WithDescription("Unix time of the last run that finished without failures"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *PipelineMetrics) attrs(stage string) metric.MeasurementOption {
	return metric.WithAttributes(m.tool, attribute.String("stage", stage))
}

// AddFiles records n files handled by stage
func (m *PipelineMetrics) AddFiles(ctx context.Context, stage string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.filesProcessed.Add(ctx, int64(n), m.attrs(stage))
}

// AddRows records n rows handled by stage
func (m *PipelineMetrics) AddRows(ctx context.Context, stage string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsProcessed.Add(ctx, int64(n), m.attrs(stage))
}

// AddPoints records n points written to bucket
func (m *PipelineMetrics) AddPoints(ctx context.Context, bucket string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.pointsWritten.Add(ctx, int64(n), metric.WithAttributes(m.tool, attribute.String("bucket", bucket)))
}

// AddError records one skipped failure in stage
func (m *PipelineMetrics) AddError(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, m.attrs(stage))
}

// ObserveStage records how long stage took since start
func (m *PipelineMetrics) ObserveStage(ctx context.Context, stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, time.Since(start).Seconds(), m.attrs(stage))
}

// MarkSuccess records the current time as the last successful run
func (m *PipelineMetrics) MarkSuccess(ctx context.Context) {
	if m == nil {
		return
	}
	m.lastSuccess.Record(ctx, float64(time.Now().Unix()), metric.WithAttributes(m.tool))
}
