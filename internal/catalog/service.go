// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Store persists catalog items. Stock decrements on sale go through the
// sales commit unit, never through this interface.
type Store interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	SearchItems(ctx context.Context, query string, limit int) ([]*Item, error)
}

// Service defines the interface for the catalog service.
type Service interface {
	AddItem(ctx context.Context, in NewItem) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, update ItemUpdate) (*Item, error)
	RemoveItem(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string) ([]*Item, error)
	LowStock(ctx context.Context) ([]*Item, error)
	Expired(ctx context.Context) ([]*Item, error)
}
