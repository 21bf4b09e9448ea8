// Package dashboard derives the daily summary shown on the point-of-sale
// home screen. Nothing here is stored; every snapshot is recomputed from the
// committed items and sales.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shelfpos/internal/catalog"
	"shelfpos/internal/sales"
)

// Snapshot is a point-in-time view of the store.
type Snapshot struct {
	TotalItems      int             `json:"total_items"`
	LowStockCount   int             `json:"low_stock_count"`
	ExpiredCount    int             `json:"expired_items_count"`
	TodaySalesCount int             `json:"today_sales_count"`
	TodayRevenue    decimal.Decimal `json:"today_revenue"`
	Day             string          `json:"day"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Reader is the read surface a snapshot is computed from.
type Reader interface {
	ListItems(ctx context.Context) ([]*catalog.Item, error)
	ListSalesByDateRange(ctx context.Context, from, to time.Time) ([]*sales.Sale, error)
}

// Source hands out readers that see one consistent state.
type Source interface {
	ReadOnly(ctx context.Context, fn func(r Reader) error) error
}

type Aggregator struct {
	source   Source
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewAggregator returns an aggregator whose "today" is the calendar day in loc.
func NewAggregator(source Source, loc *time.Location, logger *zap.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		source:   source,
		location: loc,
		now:      time.Now,
		logger:   logger.With(zap.String("component", "dashboard")),
		tracer:   otel.Tracer("shelfpos/dashboard"),
	}
}

// SetClock replaces the time source.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Snapshot recomputes the summary from the current committed state.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	ctx, span := a.tracer.Start(ctx, "dashboard.snapshot")
	defer span.End()

	now := a.now()
	from, to := sales.DayBounds(now, a.location)
	today := catalog.CalendarDay(now, a.location)

	snap := &Snapshot{
		TodayRevenue: decimal.Zero,
		Day:          today.Format("2006-01-02"),
		GeneratedAt:  now.UTC(),
	}

	err := a.source.ReadOnly(ctx, func(r Reader) error {
		items, err := r.ListItems(ctx)
		if err != nil {
			return err
		}
		snap.TotalItems = len(items)
		for _, item := range items {
			if item.LowStock() {
				snap.LowStockCount++
			}
			if item.Expired(today) {
				snap.ExpiredCount++
			}
		}

		todays, err := r.ListSalesByDateRange(ctx, from, to)
		if err != nil {
			return err
		}
		snap.TodaySalesCount = len(todays)
		for _, sale := range todays {
			snap.TodayRevenue = snap.TodayRevenue.Add(sale.Pricing.GrandTotal)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("compute snapshot: %w", err)
	}

	span.SetAttributes(
		attribute.Int("items.total", snap.TotalItems),
		attribute.Int("sales.today", snap.TodaySalesCount),
	)
	return snap, nil
}
