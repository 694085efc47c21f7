package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/greenroute/greenroute/internal/telemetry"
)

func TestProviderMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	m, err := telemetry.NewProviderMetrics()
	require.NoError(t, err)

	m.RecordRequest("route-backend", "route", 120*time.Millisecond, nil)
	m.RecordRequest("route-backend", "route", 80*time.Millisecond, errors.New("down"))
	m.RecordCacheHit("places", "autocomplete")
	m.RecordCacheMiss("places", "autocomplete")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	assert.True(t, names["provider.request.duration"])
	assert.True(t, names["provider.request.total"])
	assert.True(t, names["provider.cache.hit"])
	assert.True(t, names["provider.cache.miss"])
}

func TestProviderMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.ProviderMetrics
	assert.NotPanics(t, func() {
		m.RecordRequest("p", "op", time.Second, nil)
		m.RecordCacheHit("p", "op")
		m.RecordCacheMiss("p", "op")
	})
}
