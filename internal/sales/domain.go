// internal/sales/domain.go
package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shelfpos/internal/pricing"
)

// WalkInCustomer is the customer name recorded on sales with no customer.
const WalkInCustomer = "Walk-in Customer"

// Sale is an immutable committed transaction.
type Sale struct {
	ID            uuid.UUID         `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	CustomerID    *uuid.UUID        `json:"customer_id,omitempty"`
	CustomerName  string            `json:"customer_name"`
	Lines         []SaleLine        `json:"lines"`
	Pricing       pricing.Breakdown `json:"pricing"`
	PaymentMethod string            `json:"payment_method"`
}

// WalkIn reports whether the sale has no customer reference.
func (s *Sale) WalkIn() bool {
	return s.CustomerID == nil
}

// SaleLine is a committed line with name and price snapshots.
type SaleLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Submission is everything the caller hands to SubmitSale.
type Submission struct {
	Cart            Cart
	CustomerID      *uuid.UUID
	CustomerName    string
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
	PaymentMethod   string
}
