// internal/directory/implementation.go
package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	store       Store
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewService creates a new directory service instance. Writes are limited to
// perMinute registrations with the given burst; perMinute <= 0 disables the limit.
func NewService(store Store, perMinute, burst int, logger *zap.Logger) Service {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	return &service{
		store:       store,
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger.With(zap.String("component", "directory")),
	}
}

// AddCustomer registers a new customer.
func (s *service) AddCustomer(ctx context.Context, in NewCustomer) (*Customer, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	name, phone := strings.TrimSpace(in.Name), strings.TrimSpace(in.Phone)
	if name == "" || phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", ErrInvalid)
	}

	customer := &Customer{
		ID:        uuid.New(),
		Name:      name,
		Phone:     phone,
		Email:     strings.TrimSpace(in.Email),
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer registered", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

// GetCustomer retrieves a customer by their ID.
func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *service) ListCustomers(ctx context.Context) ([]*Customer, error) {
	return s.store.ListCustomers(ctx)
}

// AddSupplier registers a new supplier.
func (s *service) AddSupplier(ctx context.Context, in NewSupplier) (*Supplier, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	name, phone := strings.TrimSpace(in.Name), strings.TrimSpace(in.Phone)
	if name == "" || phone == "" || strings.TrimSpace(in.ContactPerson) == "" {
		return nil, fmt.Errorf("%w: name, contact_person and phone are required", ErrInvalid)
	}

	supplier := &Supplier{
		ID:            uuid.New(),
		Name:          name,
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Phone:         phone,
		Email:         strings.TrimSpace(in.Email),
		Address:       strings.TrimSpace(in.Address),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateSupplier(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	s.logger.Info("supplier registered", zap.String("supplier_id", supplier.ID.String()))
	return supplier, nil
}

func (s *service) ListSuppliers(ctx context.Context) ([]*Supplier, error) {
	return s.store.ListSuppliers(ctx)
}
