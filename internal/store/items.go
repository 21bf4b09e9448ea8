package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shelfpos/internal/catalog"
)

const itemColumns = `id, name, generic_name, manufacturer, category, dosage, form, batch_number,
	expiry_date, unit_cost, unit_price, on_hand, min_stock, created_at, updated_at`

// itemSelect reads expiry_date under its own name so a NULL lands in
// itemRow.Expiry instead of failing the time.Time scan.
const itemSelect = `id, name, generic_name, manufacturer, category, dosage, form, batch_number,
	expiry_date AS expiry, unit_cost, unit_price, on_hand, min_stock, created_at, updated_at`

// itemRow is a stocked_items row. Items without an expiry date store NULL.
type itemRow struct {
	catalog.Item
	Expiry sql.NullTime `db:"expiry"`
}

func (r *itemRow) item() *catalog.Item {
	item := r.Item
	if r.Expiry.Valid {
		item.ExpiryDate = r.Expiry.Time
	}
	normalizeItem(&item)
	return &item
}

func rowsToItems(rows []itemRow) []*catalog.Item {
	items := make([]*catalog.Item, len(rows))
	for i := range rows {
		items[i] = rows[i].item()
	}
	return items
}

// expiry returns the stored form of an expiry date, or nil for none.
func (s *Store) expiry(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return s.ts(t)
}

func (s *Store) CreateItem(ctx context.Context, item *catalog.Item) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO stocked_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		item.ID, item.Name, item.GenericName, item.Manufacturer, item.Category, item.Dosage, item.Form,
		item.BatchNumber, s.expiry(item.ExpiryDate), item.UnitCost, item.UnitPrice, item.OnHand, item.MinStock,
		s.ts(item.CreatedAt), s.ts(item.UpdatedAt),
	)
	if err := mapError(err); err != nil {
		if errors.Is(err, errUniqueViolation) {
			return fmt.Errorf("%w: %s batch %q", catalog.ErrDuplicate, item.Name, item.BatchNumber)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	return getItem(ctx, s.db, id)
}

func (s *Store) ListItems(ctx context.Context) ([]*catalog.Item, error) {
	return listItems(ctx, s.db)
}

func (s *Store) UpdateItem(ctx context.Context, item *catalog.Item) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE stocked_items
		SET name = ?, generic_name = ?, manufacturer = ?, category = ?, dosage = ?, form = ?,
			batch_number = ?, expiry_date = ?, unit_cost = ?, unit_price = ?, on_hand = ?,
			min_stock = ?, updated_at = ?
		WHERE id = ?
	`),
		item.Name, item.GenericName, item.Manufacturer, item.Category, item.Dosage, item.Form,
		item.BatchNumber, s.expiry(item.ExpiryDate), item.UnitCost, item.UnitPrice, item.OnHand,
		item.MinStock, s.ts(item.UpdatedAt), item.ID,
	)
	if err := mapError(err); err != nil {
		if errors.Is(err, errUniqueViolation) {
			return fmt.Errorf("%w: %s batch %q", catalog.ErrDuplicate, item.Name, item.BatchNumber)
		}
		return fmt.Errorf("update item: %w", err)
	}
	return expectOne(res, catalog.ErrNotFound)
}

func (s *Store) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM stocked_items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectOne(res, catalog.ErrNotFound)
}

// SearchItems matches query as a case-insensitive substring of the name,
// generic name, manufacturer or category.
func (s *Store) SearchItems(ctx context.Context, query string, limit int) ([]*catalog.Item, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var rows []itemRow
	err := sqlx.SelectContext(ctx, s.db, &rows, s.db.Rebind(`
		SELECT `+itemSelect+`
		FROM stocked_items
		WHERE LOWER(name) LIKE ? ESCAPE '\'
			OR LOWER(generic_name) LIKE ? ESCAPE '\'
			OR LOWER(manufacturer) LIKE ? ESCAPE '\'
			OR LOWER(category) LIKE ? ESCAPE '\'
		ORDER BY name ASC
		LIMIT ?
	`), pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return rowsToItems(rows), nil
}

func getItem(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*catalog.Item, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`
		SELECT `+itemSelect+` FROM stocked_items WHERE id = ?
	`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return row.item(), nil
}

func listItems(ctx context.Context, q sqlx.ExtContext) ([]*catalog.Item, error) {
	var rows []itemRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT `+itemSelect+` FROM stocked_items ORDER BY name ASC, batch_number ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return rowsToItems(rows), nil
}

// decrementStock lowers on-hand by qty in a single conditional statement, so
// concurrent sales can never drive it below zero.
func (s *Store) decrementStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, qty int) error {
	ctx, span := s.tracer.Start(ctx, "store.decrement_stock",
		trace.WithAttributes(
			attribute.String("item.id", id.String()),
			attribute.Int("quantity", qty),
		),
	)
	defer span.End()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE stocked_items
		SET on_hand = on_hand - ?, updated_at = ?
		WHERE id = ? AND on_hand >= ?
	`), qty, s.ts(s.now()), id, qty)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("decrement stock: %w", mapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing updated: either the item is gone or there is not enough of it.
	item, err := getItem(ctx, tx, id)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Bool("stock.insufficient", true))
	return insufficient(item, qty)
}

func expectOne(res interface{ RowsAffected() (int64, error) }, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func normalizeItem(item *catalog.Item) {
	if !item.ExpiryDate.IsZero() {
		y, m, d := item.ExpiryDate.Date()
		item.ExpiryDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
}
