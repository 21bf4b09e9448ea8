// internal/directory/service.go
package directory

import (
	"context"

	"github.com/google/uuid"
)

// Store persists customers and suppliers.
type Store interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	CreateSupplier(ctx context.Context, s *Supplier) error
	ListSuppliers(ctx context.Context) ([]*Supplier, error)
}

// Service defines the interface for the directory service.
type Service interface {
	AddCustomer(ctx context.Context, in NewCustomer) (*Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	AddSupplier(ctx context.Context, in NewSupplier) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]*Supplier, error)
}
