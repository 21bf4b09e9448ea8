package telemetry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"shelfpos/internal/pricing"
	"shelfpos/internal/sales"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestSalesRecorder(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	rec, err := NewSalesRecorder(provider.Meter("test"))
	require.NoError(t, err)

	rec.SaleCommitted(ctx, &sales.Sale{
		PaymentMethod: "cash",
		Pricing:       pricing.Breakdown{GrandTotal: decimal.RequireFromString("15.12")},
	})
	rec.SaleCommitted(ctx, &sales.Sale{
		PaymentMethod: "cash",
		Pricing:       pricing.Breakdown{GrandTotal: decimal.RequireFromString("42.50")},
	})
	rec.SaleRejected(ctx, "insufficient_stock")

	data := collect(t, reader)

	committed, ok := data["shelfpos.sales.committed"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, committed.DataPoints, 1)
	assert.Equal(t, int64(2), committed.DataPoints[0].Value)

	rejected, ok := data["shelfpos.sales.rejected"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, rejected.DataPoints, 1)
	kind, _ := rejected.DataPoints[0].Attributes.Value(attribute.Key("kind"))
	assert.Equal(t, "insufficient_stock", kind.AsString())

	revenue, ok := data["shelfpos.sales.revenue"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, revenue.DataPoints, 1)
	assert.Equal(t, uint64(2), revenue.DataPoints[0].Count)
	assert.InDelta(t, 57.62, revenue.DataPoints[0].Sum, 1e-9)
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupInstallsMeterProvider(t *testing.T) {
	prevMeters, prevTracers := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(prevMeters)
		otel.SetTracerProvider(prevTracers)
	})

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	p, err := Setup(ctx, Config{
		Enabled:      true,
		Endpoint:     "localhost:4318",
		ServiceName:  "shelfpos-test",
		SampleRate:   1,
		MetricReader: reader,
	}, zap.NewNop())
	require.NoError(t, err)

	recorder, err := NewSalesRecorder(otel.Meter("shelfpos/sales"))
	require.NoError(t, err)
	recorder.SaleRejected(ctx, "empty_cart")

	data := collect(t, reader)
	rejected, ok := data["shelfpos.sales.rejected"].(metricdata.Sum[int64])
	require.True(t, ok, "the global meter must feed the installed reader")
	require.Len(t, rejected.DataPoints, 1)
	assert.Equal(t, int64(1), rejected.DataPoints[0].Value)

	assert.NoError(t, p.Shutdown(ctx))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOn")
	assert.Contains(t, sampler(0).Description(), "AlwaysOff")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
