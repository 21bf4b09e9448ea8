// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const searchLimit = 100

// service implements the Service interface.
type service struct {
	store    Store
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a new catalog service instance. loc is the store's
// reference zone used to decide which items have expired.
func NewService(store Store, loc *time.Location, logger *zap.Logger) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		store:    store,
		location: loc,
		now:      time.Now,
		logger:   logger.With(zap.String("component", "catalog")),
	}
}

// AddItem creates a new item in the catalog.
func (s *service) AddItem(ctx context.Context, in NewItem) (*Item, error) {
	now := s.now().UTC()
	item := &Item{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		GenericName:  in.GenericName,
		Manufacturer: in.Manufacturer,
		Category:     in.Category,
		Dosage:       in.Dosage,
		Form:         in.Form,
		BatchNumber:  in.BatchNumber,
		ExpiryDate:   in.ExpiryDate.Time,
		UnitCost:     in.UnitCost,
		UnitPrice:    in.UnitPrice,
		OnHand:       in.OnHand,
		MinStock:     in.MinStock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validate(item); err != nil {
		return nil, err
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info("item added",
		zap.String("item_id", item.ID.String()),
		zap.String("name", item.Name),
		zap.Int("on_hand", item.OnHand),
	)
	return item, nil
}

// GetItem retrieves an item from the catalog by its ID.
func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *service) ListItems(ctx context.Context) ([]*Item, error) {
	return s.store.ListItems(ctx)
}

// UpdateItem applies a partial update. Setting on_hand here is the direct
// stock correction path; sales never use it.
func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, update ItemUpdate) (*Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	update.apply(item)
	item.Name = strings.TrimSpace(item.Name)
	item.UpdatedAt = s.now().UTC()
	if err := validate(item); err != nil {
		return nil, err
	}

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// RemoveItem deletes an item. Past sales keep their name snapshot.
func (s *service) RemoveItem(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("item removed", zap.String("item_id", id.String()))
	return nil
}

// Search finds items whose name, generic name, manufacturer or category
// contains the query, case-insensitively.
func (s *service) Search(ctx context.Context, query string) ([]*Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Item{}, nil
	}
	return s.store.SearchItems(ctx, query, searchLimit)
}

func (s *service) LowStock(ctx context.Context) ([]*Item, error) {
	return s.filter(ctx, (*Item).LowStock)
}

func (s *service) Expired(ctx context.Context) ([]*Item, error) {
	today := CalendarDay(s.now(), s.location)
	return s.filter(ctx, func(i *Item) bool { return i.Expired(today) })
}

func (s *service) filter(ctx context.Context, keep func(*Item) bool) ([]*Item, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Item, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}
