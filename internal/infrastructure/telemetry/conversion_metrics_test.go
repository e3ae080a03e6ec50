package telemetry_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	appconv "github.com/erp/conversion/internal/application/conversion"
	domain "github.com/erp/conversion/internal/domain/conversion"
	"github.com/erp/conversion/internal/infrastructure/conversion"
	"github.com/erp/conversion/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

type celsius struct{ Degrees float64 }
type kelvin struct{ Degrees float64 }
type rankine struct{ Degrees float64 }

func newTestMetrics(t *testing.T) (*telemetry.ConversionMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp, err := telemetry.NewMeterProviderWithReader(reader, "conversion-test", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	assert.True(t, mp.IsEnabled())

	m, err := telemetry.NewConversionMetrics(mp.Meter("conversion"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func attrEquals(set attribute.Set, key attribute.Key, want string) bool {
	v, ok := set.Value(key)
	return ok && v.Emit() == want
}

// counterValue sums the data points of a counter whose key attribute equals want
func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string, key attribute.Key, want string) int64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	if !ok {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", name)
	var total int64
	for _, dp := range sum.DataPoints {
		if attrEquals(dp.Attributes, key, want) {
			total += dp.Value
		}
	}
	return total
}

func gaugeValue(t *testing.T, rm metricdata.ResourceMetrics, kind string) int64 {
	t.Helper()
	m, ok := findMetric(rm, telemetry.MetricEntries)
	require.True(t, ok)
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	for _, dp := range gauge.DataPoints {
		if attrEquals(dp.Attributes, telemetry.AttrKind, kind) {
			return dp.Value
		}
	}
	t.Fatalf("no %s data point", kind)
	return 0
}

func TestNewConversionMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewConversionMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "conversion-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("conversion"))
	assert.NoError(t, mp.ForceFlush(context.Background()))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestConversionMetrics_Direct(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLookup(conversion.OutcomeCached)
	m.RecordLookup(conversion.OutcomeCached)
	m.RecordLookup(conversion.OutcomeNotFound)
	m.RecordSearch(true, 3, 120*time.Microsecond)
	m.RecordInvalidation(conversion.InvalidatedNegative, 4)
	m.RecordInvalidation(conversion.InvalidatedSynthetic, 0)
	m.RecordConversion(appconv.OutcomeFallback)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), counterValue(t, rm, telemetry.MetricLookups, telemetry.AttrOutcome, conversion.OutcomeCached))
	assert.Equal(t, int64(1), counterValue(t, rm, telemetry.MetricLookups, telemetry.AttrOutcome, conversion.OutcomeNotFound))
	assert.Equal(t, int64(1), counterValue(t, rm, telemetry.MetricSearches, telemetry.AttrFound, "true"))
	assert.Equal(t, int64(4), counterValue(t, rm, telemetry.MetricInvalidations, telemetry.AttrKind, conversion.InvalidatedNegative))
	assert.Equal(t, int64(0), counterValue(t, rm, telemetry.MetricInvalidations, telemetry.AttrKind, conversion.InvalidatedSynthetic))
	assert.Equal(t, int64(1), counterValue(t, rm, telemetry.MetricConversions, telemetry.AttrOutcome, appconv.OutcomeFallback))

	hist, ok := findMetric(rm, telemetry.MetricSearchDuration)
	require.True(t, ok)
	data, ok := hist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(1), data.DataPoints[0].Count)
}

func TestConversionMetrics_WiredIntoCatalogAndService(t *testing.T) {
	m, reader := newTestMetrics(t)

	catalog := conversion.NewCatalog(conversion.CatalogConfig{Metrics: m})
	require.NoError(t, conversion.RegisterFunc(catalog, func(c celsius, _ domain.Hints) (kelvin, error) {
		return kelvin{Degrees: c.Degrees + 273.15}, nil
	}))
	require.NoError(t, conversion.RegisterFunc(catalog, func(k kelvin, _ domain.Hints) (rankine, error) {
		return rankine{Degrees: k.Degrees * 1.8}, nil
	}))
	_, err := m.ObserveCatalog(catalog)
	require.NoError(t, err)

	svc := appconv.NewService(catalog, appconv.WithRecorder(m))

	out, err := appconv.Convert[rankine](svc, celsius{Degrees: 0}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 491.67, out.Degrees, 1e-9)

	_, err = appconv.Convert[rankine](svc, celsius{Degrees: 100}, nil)
	require.NoError(t, err)

	_, err = appconv.Convert[celsius](svc, rankine{}, nil)
	require.Error(t, err)
	_, err = appconv.Convert[celsius](svc, rankine{}, nil)
	require.Error(t, err)

	rm := collect(t, reader)
	assert.Equal(t, int64(1), counterValue(t, rm, telemetry.MetricLookups, telemetry.AttrOutcome, conversion.OutcomeResolved))
	assert.Equal(t, int64(1), counterValue(t, rm, telemetry.MetricLookups, telemetry.AttrOutcome, conversion.OutcomeCached))
	// each failed conversion also tries the string fallback
	assert.Equal(t, int64(2), counterValue(t, rm, telemetry.MetricLookups, telemetry.AttrOutcome, conversion.OutcomeNotFound))
	assert.Equal(t, int64(2), counterValue(t, rm, telemetry.MetricLookups, telemetry.AttrOutcome, conversion.OutcomeNegative))
	assert.Equal(t, int64(2), counterValue(t, rm, telemetry.MetricConversions, telemetry.AttrOutcome, appconv.OutcomeConverted))
	assert.Equal(t, int64(2), counterValue(t, rm, telemetry.MetricConversions, telemetry.AttrOutcome, appconv.OutcomeFailed))
	assert.Equal(t, int64(2), gaugeValue(t, rm, "original"))
	assert.Equal(t, int64(1), gaugeValue(t, rm, "synthetic"))
	assert.Equal(t, int64(2), gaugeValue(t, rm, "negative"))

	// overwriting an edge drops the synthetic path and the negative entries
	require.NoError(t, catalog.Register(domain.NewConverter(domain.Typed(func(c celsius, _ domain.Hints) (kelvin, error) {
		return kelvin{Degrees: c.Degrees + 273}, nil
	})), reflect.TypeFor[celsius](), reflect.TypeFor[kelvin]()))

	rm = collect(t, reader)
	assert.Equal(t, int64(1), counterValue(t, rm, telemetry.MetricInvalidations, telemetry.AttrKind, conversion.InvalidatedSynthetic))
	assert.Equal(t, int64(2), counterValue(t, rm, telemetry.MetricInvalidations, telemetry.AttrKind, conversion.InvalidatedNegative))
	assert.Equal(t, int64(0), gaugeValue(t, rm, "synthetic"))
	assert.Equal(t, int64(0), gaugeValue(t, rm, "negative"))
}
