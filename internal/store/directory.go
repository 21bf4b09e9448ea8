package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"shelfpos/internal/directory"
)

func (s *Store) CreateCustomer(ctx context.Context, c *directory.Customer) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO customers (id, name, phone, email, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), c.ID, c.Name, c.Phone, c.Email, c.Address, s.ts(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert customer: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*directory.Customer, error) {
	var c directory.Customer
	err := sqlx.GetContext(ctx, s.db, &c, s.db.Rebind(`
		SELECT id, name, phone, email, address, created_at FROM customers WHERE id = ?
	`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, directory.ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]*directory.Customer, error) {
	customers := []*directory.Customer{}
	err := sqlx.SelectContext(ctx, s.db, &customers, `
		SELECT id, name, phone, email, address, created_at FROM customers ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sup *directory.Supplier) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO suppliers (id, name, contact_person, phone, email, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), sup.ID, sup.Name, sup.ContactPerson, sup.Phone, sup.Email, sup.Address, s.ts(sup.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert supplier: %w", mapError(err))
	}
	return nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]*directory.Supplier, error) {
	suppliers := []*directory.Supplier{}
	err := sqlx.SelectContext(ctx, s.db, &suppliers, `
		SELECT id, name, contact_person, phone, email, address, created_at FROM suppliers ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, nil
}
