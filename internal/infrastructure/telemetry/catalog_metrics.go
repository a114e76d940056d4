package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CatalogMetricsMeterName is the instrumentation scope of the catalog mirror metrics
const CatalogMetricsMeterName = "github.com/catalogmirror/backend/catalog"

// CatalogMetrics records sync job outcomes and ledger activity. A nil
// *CatalogMetrics records nothing.
//
// The Prometheus exporter appends unit and counter suffixes, so sync_jobs is
// scraped as sync_jobs_total and sync_duration as sync_duration_seconds.
type CatalogMetrics struct {
	jobs        *Counter
	items       *Counter
	duration    *Histogram
	adjustments *Counter
	conflicts   *Counter
}

// NewCatalogMetrics registers the instruments on the provider's meter
func NewCatalogMetrics(mp *MeterProvider) (*CatalogMetrics, error) {
	if mp == nil {
		return nil, nil
	}
	meter := mp.Meter(CatalogMetricsMeterName)

	jobs, err := NewCounter(meter, "sync_jobs", "Finished sync jobs by type and status", "{job}")
	if err != nil {
		return nil, err
	}
	items, err := NewCounter(meter, "sync_items", "Mirror records written by sync jobs", "{record}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "sync_duration",
		Description: "Wall time of sync jobs",
		Unit:        "s",
		Boundaries:  []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})
	if err != nil {
		return nil, err
	}
	adjustments, err := NewCounter(meter, "stock_adjustments", "Stock adjustment attempts by type and outcome", "{adjustment}")
	if err != nil {
		return nil, err
	}
	conflicts, err := NewCounter(meter, "reconciliation_conflicts", "Targets clamped to zero during reconciliation", "{target}")
	if err != nil {
		return nil, err
	}

	return &CatalogMetrics{
		jobs:        jobs,
		items:       items,
		duration:    duration,
		adjustments: adjustments,
		conflicts:   conflicts,
	}, nil
}

// JobFinished records a job reaching a terminal status
func (m *CatalogMetrics) JobFinished(ctx context.Context, syncType integration.SyncType, status integration.SyncStatus, reason integration.SyncErrorReason, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("sync_type", string(syncType)),
		attribute.String("status", string(status)),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", string(reason)))
	}
	m.jobs.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, duration, attrs[0], attrs[1])
}

// ItemsSynced adds written records of the given kind
func (m *CatalogMetrics) ItemsSynced(ctx context.Context, kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.items.Add(ctx, int64(count), attribute.String("kind", kind))
}

// ConflictsDetected adds reconciliation conflicts
func (m *CatalogMetrics) ConflictsDetected(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.conflicts.Add(ctx, int64(count))
}

// AdjustmentRecorded counts one ledger attempt
func (m *CatalogMetrics) AdjustmentRecorded(ctx context.Context, adjustmentType inventory.AdjustmentType, outcome string) {
	if m == nil {
		return
	}
	m.adjustments.Inc(ctx,
		attribute.String("adjustment_type", string(adjustmentType)),
		attribute.String("outcome", outcome),
	)
}

// Counter wraps an Int64Counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new Counter metric.
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by value.
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by 1.
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Histogram wraps a Float64Histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// HistogramOpts provides options for creating a histogram.
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64
}

// NewHistogram creates a new Histogram metric.
func NewHistogram(meter metric.Meter, opts HistogramOpts) (*Histogram, error) {
	hopts := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Boundaries) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(opts.Boundaries...))
	}
	h, err := meter.Float64Histogram(opts.Name, hopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", opts.Name, err)
	}
	return &Histogram{histogram: h}, nil
}

// RecordDuration records d in seconds.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}
