// internal/catalog/domain.go
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("catalog item not found")
	ErrDuplicate   = errors.New("catalog item already exists")
	ErrInvalidItem = errors.New("invalid catalog item")
)

// Item is a stocked product and its on-hand quantity.
type Item struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	GenericName  string          `json:"generic_name" db:"generic_name"`
	Manufacturer string          `json:"manufacturer" db:"manufacturer"`
	Category     string          `json:"category" db:"category"`
	Dosage       string          `json:"dosage" db:"dosage"`
	Form         string          `json:"form" db:"form"`
	BatchNumber  string          `json:"batch_number" db:"batch_number"`
	ExpiryDate   time.Time       `json:"expiry_date" db:"expiry_date"`
	UnitCost     decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	OnHand       int             `json:"on_hand" db:"on_hand"`
	MinStock     int             `json:"min_stock" db:"min_stock"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// LowStock reports whether on-hand has fallen to the minimum threshold.
func (i *Item) LowStock() bool {
	return i.OnHand <= i.MinStock
}

// Expired reports whether the item's expiry date is on or before day.
// Items without an expiry date never expire.
func (i *Item) Expired(day time.Time) bool {
	return !i.ExpiryDate.IsZero() && !i.ExpiryDate.After(day)
}

// NewItem carries the fields needed to create an item.
type NewItem struct {
	Name         string          `json:"name"`
	GenericName  string          `json:"generic_name"`
	Manufacturer string          `json:"manufacturer"`
	Category     string          `json:"category"`
	Dosage       string          `json:"dosage"`
	Form         string          `json:"form"`
	BatchNumber  string          `json:"batch_number"`
	ExpiryDate   Date            `json:"expiry_date"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	OnHand       int             `json:"on_hand"`
	MinStock     int             `json:"min_stock"`
}

// ItemUpdate is a partial update; nil fields are left unchanged.
type ItemUpdate struct {
	Name         *string          `json:"name,omitempty"`
	GenericName  *string          `json:"generic_name,omitempty"`
	Manufacturer *string          `json:"manufacturer,omitempty"`
	Category     *string          `json:"category,omitempty"`
	Dosage       *string          `json:"dosage,omitempty"`
	Form         *string          `json:"form,omitempty"`
	BatchNumber  *string          `json:"batch_number,omitempty"`
	ExpiryDate   *Date            `json:"expiry_date,omitempty"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	OnHand       *int             `json:"on_hand,omitempty"`
	MinStock     *int             `json:"min_stock,omitempty"`
}

func (u ItemUpdate) apply(item *Item) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&item.Name, u.Name)
	setString(&item.GenericName, u.GenericName)
	setString(&item.Manufacturer, u.Manufacturer)
	setString(&item.Category, u.Category)
	setString(&item.Dosage, u.Dosage)
	setString(&item.Form, u.Form)
	setString(&item.BatchNumber, u.BatchNumber)
	if u.ExpiryDate != nil {
		item.ExpiryDate = u.ExpiryDate.Time
	}
	if u.UnitCost != nil {
		item.UnitCost = *u.UnitCost
	}
	if u.UnitPrice != nil {
		item.UnitPrice = *u.UnitPrice
	}
	if u.OnHand != nil {
		item.OnHand = *u.OnHand
	}
	if u.MinStock != nil {
		item.MinStock = *u.MinStock
	}
}

func validate(item *Item) error {
	switch {
	case strings.TrimSpace(item.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	case item.OnHand < 0:
		return fmt.Errorf("%w: on_hand must not be negative", ErrInvalidItem)
	case item.MinStock < 0:
		return fmt.Errorf("%w: min_stock must not be negative", ErrInvalidItem)
	case item.UnitPrice.IsNegative():
		return fmt.Errorf("%w: unit_price must not be negative", ErrInvalidItem)
	case item.UnitCost.IsNegative():
		return fmt.Errorf("%w: unit_cost must not be negative", ErrInvalidItem)
	}
	return nil
}

// Date is a calendar date encoded as YYYY-MM-DD, held as midnight UTC.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", s, err)
		}
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

// CalendarDay returns the calendar date of now in loc, as midnight UTC, so it
// compares directly with ExpiryDate.
func CalendarDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
