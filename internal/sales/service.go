// internal/sales/service.go
package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shelfpos/internal/catalog"
	"shelfpos/internal/directory"
	"shelfpos/internal/pricing"
)

// Tx is the store as seen from inside one commit unit. Everything done
// through a Tx becomes visible together or not at all.
type Tx interface {
	GetItem(ctx context.Context, id uuid.UUID) (*catalog.Item, error)
	// DecrementStock lowers on-hand by qty only if at least qty is on hand.
	// It returns *InsufficientStockError or catalog.ErrNotFound otherwise.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	// AppendSale persists sale, assigning its ID.
	AppendSale(ctx context.Context, sale *Sale) (*Sale, error)
}

// Store is the sale repository plus the commit unit.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetSale(ctx context.Context, id uuid.UUID) (*Sale, error)
	ListSales(ctx context.Context, limit int) ([]*Sale, error)
	ListSalesByDateRange(ctx context.Context, from, to time.Time) ([]*Sale, error)
}

// CustomerLookup resolves customer names for sales that reference one.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*directory.Customer, error)
}

// CommitObserver is told about every submission outcome.
type CommitObserver interface {
	SaleCommitted(ctx context.Context, sale *Sale)
	SaleRejected(ctx context.Context, kind string)
}

// Service defines the interface for the sale transaction engine.
type Service interface {
	SubmitSale(ctx context.Context, sub Submission) (*Sale, error)
	Quote(ctx context.Context, cart Cart, discountPercent, taxPercent decimal.Decimal) (pricing.Breakdown, error)
	GetSale(ctx context.Context, id uuid.UUID) (*Sale, error)
	ListSales(ctx context.Context) ([]*Sale, error)
	TodaySales(ctx context.Context) ([]*Sale, error)
}

// DayBounds returns the UTC instants delimiting now's calendar day in loc,
// as a half-open range [from, to).
func DayBounds(now time.Time, loc *time.Location) (from, to time.Time) {
	y, m, d := now.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
