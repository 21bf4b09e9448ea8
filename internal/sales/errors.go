package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shelfpos/internal/pricing"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrSaleNotFound = errors.New("sale not found")
)

// InvalidQuantityError reports a line quantity that is not a positive
// integer. Raw holds the submitted text when it could not be read as one.
type InvalidQuantityError struct {
	ItemID   uuid.UUID
	Quantity int
	Raw      string
}

func (e *InvalidQuantityError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("invalid quantity %s for item %s", e.Raw, e.ItemID)
	}
	return fmt.Sprintf("invalid quantity %d for item %s", e.Quantity, e.ItemID)
}

// Value is the quantity as submitted.
func (e *InvalidQuantityError) Value() string {
	if e.Raw != "" {
		return e.Raw
	}
	return strconv.Itoa(e.Quantity)
}

// InvalidRateError reports a discount or tax percentage outside [0, 100].
type InvalidRateError struct {
	Field string
	Value decimal.Decimal
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("%s must be between 0 and 100, got %s", e.Field, e.Value)
}

// InsufficientStockError reports a line asking for more than is on hand.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Name      string
	Requested int
	OnHand    int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ItemID.String()
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, on hand %d", name, e.Requested, e.OnHand)
}

// Shortfall is how many units are missing.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.OnHand
}

// NotFoundError reports a referenced entity that no longer exists.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Kind returns a stable name for a sale error, or "" if err is not one.
func Kind(err error) string {
	var (
		qtyErr   *InvalidQuantityError
		rateErr  *InvalidRateError
		stockErr *InsufficientStockError
		nfErr    *NotFoundError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &qtyErr):
		return "invalid_quantity"
	case errors.As(err, &rateErr):
		return "invalid_rate"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &nfErr), errors.Is(err, ErrSaleNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return ""
}

func rateError(err error) error {
	var re *pricing.RateError
	if errors.As(err, &re) {
		return &InvalidRateError{Field: re.Field, Value: re.Value}
	}
	return err
}
