package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/conversion/internal/infrastructure/conversion"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricLookups        = "conversion.catalog.lookups"
	MetricSearches       = "conversion.catalog.searches"
	MetricSearchDuration = "conversion.catalog.search.duration"
	MetricInvalidations  = "conversion.catalog.invalidations"
	MetricEntries        = "conversion.catalog.entries"
	MetricConversions    = "conversion.service.conversions"
)

// ConversionMetrics records catalog and service activity.
// It satisfies both the catalog and the service recorder contracts.
type ConversionMetrics struct {
	meter          metric.Meter
	lookups        *Counter
	searches       *Counter
	searchDuration *Histogram
	invalidations  *Counter
	conversions    *Counter
}

// NewConversionMetrics creates the conversion instruments on meter.
func NewConversionMetrics(meter metric.Meter) (*ConversionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ConversionMetrics{meter: meter}
	var err error
	if m.lookups, err = NewCounter(meter, MetricLookups,
		"Converter lookups by outcome", "{lookup}"); err != nil {
		return nil, err
	}
	if m.searches, err = NewCounter(meter, MetricSearches,
		"Converter path searches", "{search}"); err != nil {
		return nil, err
	}
	if m.searchDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        MetricSearchDuration,
		Description: "Duration of converter path searches",
		Unit:        "s",
		Boundaries:  SearchDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.invalidations, err = NewCounter(meter, MetricInvalidations,
		"Cached entries dropped by registry changes", "{entry}"); err != nil {
		return nil, err
	}
	if m.conversions, err = NewCounter(meter, MetricConversions,
		"Value conversions by outcome", "{conversion}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordLookup counts a catalog lookup.
func (m *ConversionMetrics) RecordLookup(outcome string) {
	m.lookups.Inc(context.Background(), AttrOutcome.String(outcome))
}

// RecordSearch counts a path search and records how long it took.
func (m *ConversionMetrics) RecordSearch(found bool, depth int, duration time.Duration) {
	ctx := context.Background()
	attrs := []attribute.KeyValue{AttrFound.Bool(found), AttrDepth.Int(depth)}
	m.searches.Inc(ctx, attrs...)
	m.searchDuration.RecordDuration(ctx, duration, attrs...)
}

// RecordInvalidation counts cache entries dropped by a registry change.
func (m *ConversionMetrics) RecordInvalidation(kind string, count int) {
	if count <= 0 {
		return
	}
	m.invalidations.Add(context.Background(), int64(count), AttrKind.String(kind))
}

// RecordConversion counts a value conversion.
func (m *ConversionMetrics) RecordConversion(outcome string) {
	m.conversions.Inc(context.Background(), AttrOutcome.String(outcome))
}

// StatsSource reports catalog sizes
type StatsSource interface {
	Stats() conversion.Stats
}

// ObserveCatalog publishes the catalog sizes as an observable gauge.
func (m *ConversionMetrics) ObserveCatalog(source StatsSource) (metric.Registration, error) {
	gauge, err := m.meter.Int64ObservableGauge(MetricEntries,
		metric.WithDescription("Catalog entries by kind"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %s: %w", MetricEntries, err)
	}
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := source.Stats()
		o.ObserveInt64(gauge, int64(stats.Originals), metric.WithAttributes(AttrKind.String("original")))
		o.ObserveInt64(gauge, int64(stats.Synthetic), metric.WithAttributes(AttrKind.String("synthetic")))
		o.ObserveInt64(gauge, int64(stats.Negative), metric.WithAttributes(AttrKind.String("negative")))
		o.ObserveInt64(gauge, int64(stats.Factories), metric.WithAttributes(AttrKind.String("factory")))
		return nil
	}, gauge)
}
