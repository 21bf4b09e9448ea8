// internal/sales/implementation.go
package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shelfpos/internal/catalog"
	"shelfpos/internal/directory"
	"shelfpos/internal/pricing"
)

const listLimit = 1000

// service implements the Service interface.
type service struct {
	store          Store
	customers      CustomerLookup
	observers      []CommitObserver
	location       *time.Location
	commitTimeout  time.Duration
	defaultPayment string
	now            func() time.Time
	logger         *zap.Logger
	tracer         trace.Tracer
}

// Option configures the engine.
type Option func(*service)

// WithCustomers enables customer-name resolution for sales with a customer id.
func WithCustomers(c CustomerLookup) Option {
	return func(s *service) { s.customers = c }
}

func WithObserver(o CommitObserver) Option {
	return func(s *service) { s.observers = append(s.observers, o) }
}

// WithLocation sets the zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *service) { s.location = loc }
}

// WithCommitTimeout bounds how long a commit may wait on locks.
func WithCommitTimeout(d time.Duration) Option {
	return func(s *service) { s.commitTimeout = d }
}

func WithDefaultPaymentMethod(method string) Option {
	return func(s *service) { s.defaultPayment = method }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new sale engine instance.
func NewService(store Store, logger *zap.Logger, opts ...Option) Service {
	s := &service{
		store:          store,
		location:       time.UTC,
		commitTimeout:  5 * time.Second,
		defaultPayment: "cash",
		now:            time.Now,
		logger:         logger.With(zap.String("component", "sales")),
		tracer:         otel.Tracer("shelfpos/sales"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitSale validates the cart, then decrements stock and records the sale
// as one unit. On any error nothing is changed.
func (s *service) SubmitSale(ctx context.Context, sub Submission) (*Sale, error) {
	ctx, span := s.tracer.Start(ctx, "sales.submit",
		trace.WithAttributes(attribute.Int("cart.lines", sub.Cart.Len())),
	)
	defer span.End()

	sale, err := s.submit(ctx, sub)
	if err != nil {
		kind := Kind(err)
		if kind == "" {
			kind = "internal"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		s.logger.Warn("sale rejected", zap.String("kind", kind), zap.Error(err))
		for _, o := range s.observers {
			o.SaleRejected(ctx, kind)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.String("sale.grand_total", sale.Pricing.GrandTotal.String()),
	)
	s.logger.Info("sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.Int("lines", len(sale.Lines)),
		zap.String("grand_total", pricing.Display(sale.Pricing.GrandTotal)),
		zap.String("payment_method", sale.PaymentMethod),
	)
	for _, o := range s.observers {
		o.SaleCommitted(ctx, sale)
	}
	return sale, nil
}

func (s *service) submit(ctx context.Context, sub Submission) (*Sale, error) {
	// Step 1: non-empty cart
	if sub.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// Step 2: positive quantities
	if err := sub.Cart.Validate(); err != nil {
		return nil, err
	}
	lines := sub.Cart.Lines()

	breakdown, err := pricing.Price(sub.Cart.PricingLines(), sub.DiscountPercent, sub.TaxPercent)
	if err != nil {
		return nil, rateError(err)
	}

	customerName, err := s.customerName(ctx, sub)
	if err != nil {
		return nil, err
	}

	payment := strings.TrimSpace(sub.PaymentMethod)
	if payment == "" {
		payment = s.defaultPayment
	}

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	var committed *Sale
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		// Step 3: re-read stock at commit time, reporting the first short line
		// in cart order.
		names := make(map[uuid.UUID]string, len(lines))
		for _, l := range lines {
			item, err := tx.GetItem(ctx, l.ItemID)
			if err != nil {
				return itemError(l.ItemID, err)
			}
			if item.OnHand < l.Quantity {
				return &InsufficientStockError{ItemID: item.ID, Name: item.Name, Requested: l.Quantity, OnHand: item.OnHand}
			}
			names[l.ItemID] = item.Name
		}

		// Step 4: conditional decrements in item id order, so carts with
		// overlapping items always lock rows in the same order.
		for _, l := range sortedByItem(lines) {
			if err := tx.DecrementStock(ctx, l.ItemID, l.Quantity); err != nil {
				var stockErr *InsufficientStockError
				if errors.As(err, &stockErr) && stockErr.Name == "" {
					stockErr.Name = names[l.ItemID]
				}
				return itemError(l.ItemID, err)
			}
		}

		// Step 5: the sale record, timestamped inside the commit.
		sale := &Sale{
			CreatedAt:     s.now().UTC(),
			CustomerID:    sub.CustomerID,
			CustomerName:  customerName,
			Lines:         make([]SaleLine, len(lines)),
			Pricing:       breakdown,
			PaymentMethod: payment,
		}
		for i, l := range lines {
			sale.Lines[i] = SaleLine{
				ItemID:    l.ItemID,
				Name:      names[l.ItemID],
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				LineTotal: l.Total(),
			}
		}

		var err error
		committed, err = tx.AppendSale(ctx, sale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *service) customerName(ctx context.Context, sub Submission) (string, error) {
	name := strings.TrimSpace(sub.CustomerName)
	if sub.CustomerID == nil {
		if name == "" {
			return WalkInCustomer, nil
		}
		return name, nil
	}
	if s.customers == nil {
		return name, nil
	}

	customer, err := s.customers.GetCustomer(ctx, *sub.CustomerID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return "", &NotFoundError{Entity: "customer", ID: *sub.CustomerID, Err: err}
		}
		return "", fmt.Errorf("failed to get customer: %w", err)
	}
	if name == "" {
		name = customer.Name
	}
	return name, nil
}

func itemError(id uuid.UUID, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return &NotFoundError{Entity: "item", ID: id, Err: err}
	}
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return err
	}
	return fmt.Errorf("failed to update item %s: %w", id, err)
}

func sortedByItem(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].ItemID.String(), out[j].ItemID.String()) < 0
	})
	return out
}

// Quote prices a cart without touching any state. An empty cart quotes zero.
func (s *service) Quote(ctx context.Context, cart Cart, discountPercent, taxPercent decimal.Decimal) (pricing.Breakdown, error) {
	_, span := s.tracer.Start(ctx, "sales.quote")
	defer span.End()

	if err := cart.Validate(); err != nil {
		return pricing.Breakdown{}, err
	}
	b, err := pricing.Price(cart.PricingLines(), discountPercent, taxPercent)
	if err != nil {
		return pricing.Breakdown{}, rateError(err)
	}
	return b, nil
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*Sale, error) {
	return s.store.GetSale(ctx, id)
}

// ListSales returns the most recent sales, newest first.
func (s *service) ListSales(ctx context.Context) ([]*Sale, error) {
	return s.store.ListSales(ctx, listLimit)
}

// TodaySales returns the sales of the current calendar day in the store zone.
func (s *service) TodaySales(ctx context.Context) ([]*Sale, error) {
	from, to := DayBounds(s.now(), s.location)
	return s.store.ListSalesByDateRange(ctx, from, to)
}
