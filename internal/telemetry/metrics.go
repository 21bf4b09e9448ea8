package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"shelfpos/internal/sales"
)

// SalesRecorder counts sale outcomes. It is registered with the engine as a
// commit observer.
type SalesRecorder struct {
	committed metric.Int64Counter
	rejected  metric.Int64Counter
	revenue   metric.Float64Histogram
}

func NewSalesRecorder(meter metric.Meter) (*SalesRecorder, error) {
	committed, err := meter.Int64Counter("shelfpos.sales.committed",
		metric.WithDescription("Sales committed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create committed counter: %w", err)
	}

	rejected, err := meter.Int64Counter("shelfpos.sales.rejected",
		metric.WithDescription("Sale submissions rejected, by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rejected counter: %w", err)
	}

	revenue, err := meter.Float64Histogram("shelfpos.sales.revenue",
		metric.WithDescription("Grand total per committed sale"),
	)
	if err != nil {
		return nil, fmt.Errorf("create revenue histogram: %w", err)
	}

	return &SalesRecorder{committed: committed, rejected: rejected, revenue: revenue}, nil
}

func (r *SalesRecorder) SaleCommitted(ctx context.Context, sale *sales.Sale) {
	attrs := metric.WithAttributes(attribute.String("payment_method", sale.PaymentMethod))
	r.committed.Add(ctx, 1, attrs)

	total, _ := sale.Pricing.GrandTotal.Float64()
	r.revenue.Record(ctx, total, attrs)
}

func (r *SalesRecorder) SaleRejected(ctx context.Context, kind string) {
	r.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
