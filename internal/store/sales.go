package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shelfpos/internal/catalog"
	"shelfpos/internal/dashboard"
	"shelfpos/internal/pricing"
	"shelfpos/internal/sales"
)

type saleRow struct {
	ID              uuid.UUID       `db:"id"`
	CreatedAt       time.Time       `db:"created_at"`
	CustomerID      uuid.NullUUID   `db:"customer_id"`
	CustomerName    string          `db:"customer_name"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	DiscountPercent decimal.Decimal `db:"discount_percent"`
	DiscountAmount  decimal.Decimal `db:"discount_amount"`
	TaxPercent      decimal.Decimal `db:"tax_percent"`
	TaxAmount       decimal.Decimal `db:"tax_amount"`
	GrandTotal      decimal.Decimal `db:"grand_total"`
	PaymentMethod   string          `db:"payment_method"`
}

type lineRow struct {
	SaleID    uuid.UUID       `db:"sale_id"`
	Position  int             `db:"position"`
	ItemID    uuid.UUID       `db:"item_id"`
	Name      string          `db:"name"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	LineTotal decimal.Decimal `db:"line_total"`
}

const saleColumns = `id, created_at, customer_id, customer_name, subtotal, discount_percent,
	discount_amount, tax_percent, tax_amount, grand_total, payment_method`

// WithinTx runs fn in a transaction and commits only if fn returns nil.
// Errors from fn are returned unchanged.
func (s *Store) WithinTx(ctx context.Context, fn func(tx sales.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "store.commit",
		trace.WithAttributes(attribute.String("db.system", s.driver)),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer tx.Rollback()

	if s.driver == Postgres && s.lockTimeout > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(&saleTx{store: s, tx: tx}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rolled back")
		return err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}

	span.SetAttributes(attribute.Bool("commit.success", true))
	return nil
}

// saleTx is the sales.Tx handed to the engine inside WithinTx.
type saleTx struct {
	store *Store
	tx    *sqlx.Tx
}

func (t *saleTx) GetItem(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	return getItem(ctx, t.tx, id)
}

func (t *saleTx) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return t.store.decrementStock(ctx, t.tx, id, qty)
}

func (t *saleTx) AppendSale(ctx context.Context, sale *sales.Sale) (*sales.Sale, error) {
	return t.store.appendSale(ctx, t.tx, sale)
}

func (s *Store) appendSale(ctx context.Context, tx *sqlx.Tx, sale *sales.Sale) (*sales.Sale, error) {
	out := *sale
	out.ID = uuid.New()
	out.Lines = append([]sales.SaleLine(nil), sale.Lines...)

	var customerID any
	if out.CustomerID != nil {
		customerID = out.CustomerID.String()
	}

	p := out.Pricing
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO sales (`+saleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		out.ID, s.ts(out.CreatedAt), customerID, out.CustomerName,
		p.Subtotal, p.DiscountPercent, p.DiscountAmount, p.TaxPercent, p.TaxAmount, p.GrandTotal,
		out.PaymentMethod,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", mapError(err))
	}

	for i, l := range out.Lines {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO sale_lines (sale_id, position, item_id, name, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), out.ID, i, l.ItemID, l.Name, l.Quantity, l.UnitPrice, l.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("insert sale line %d: %w", i, mapError(err))
		}
	}

	s.logger.Debug("sale appended", zap.String("sale_id", out.ID.String()), zap.Int("lines", len(out.Lines)))
	return &out, nil
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var row saleRow
	err := sqlx.GetContext(ctx, s.db, &row, s.db.Rebind(`
		SELECT `+saleColumns+` FROM sales WHERE id = ?
	`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, sales.ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	out, err := loadLines(ctx, s.db, []saleRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ListSales returns up to limit sales, newest first.
func (s *Store) ListSales(ctx context.Context, limit int) ([]*sales.Sale, error) {
	var rows []saleRow
	err := sqlx.SelectContext(ctx, s.db, &rows, s.db.Rebind(`
		SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return loadLines(ctx, s.db, rows)
}

func (s *Store) ListSalesByDateRange(ctx context.Context, from, to time.Time) ([]*sales.Sale, error) {
	return s.salesBetween(ctx, s.db, from, to)
}

// salesBetween returns the sales with from <= created_at < to, oldest first.
func (s *Store) salesBetween(ctx context.Context, q sqlx.ExtContext, from, to time.Time) ([]*sales.Sale, error) {
	var rows []saleRow
	err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(`
		SELECT `+saleColumns+`
		FROM sales
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`), s.ts(from), s.ts(to))
	if err != nil {
		return nil, fmt.Errorf("list sales by date range: %w", err)
	}
	return loadLines(ctx, q, rows)
}

func loadLines(ctx context.Context, q sqlx.ExtContext, rows []saleRow) ([]*sales.Sale, error) {
	out := make([]*sales.Sale, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, len(rows))
	byID := make(map[uuid.UUID]*sales.Sale, len(rows))
	for i, r := range rows {
		ids[i] = r.ID.String()
		out[i] = r.toSale()
		byID[r.ID] = out[i]
	}

	query, args, err := sqlx.In(`
		SELECT sale_id, position, item_id, name, quantity, unit_price, line_total
		FROM sale_lines
		WHERE sale_id IN (?)
		ORDER BY sale_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("build line query: %w", err)
	}

	var lines []lineRow
	if err := sqlx.SelectContext(ctx, q, &lines, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load sale lines: %w", err)
	}
	for _, l := range lines {
		sale, ok := byID[l.SaleID]
		if !ok {
			continue
		}
		sale.Lines = append(sale.Lines, sales.SaleLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	return out, nil
}

func (r saleRow) toSale() *sales.Sale {
	sale := &sales.Sale{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt.UTC(),
		CustomerName: r.CustomerName,
		Lines:        []sales.SaleLine{},
		Pricing: pricing.Breakdown{
			Subtotal:        r.Subtotal,
			DiscountPercent: r.DiscountPercent,
			DiscountAmount:  r.DiscountAmount,
			TaxPercent:      r.TaxPercent,
			TaxAmount:       r.TaxAmount,
			GrandTotal:      r.GrandTotal,
		},
		PaymentMethod: r.PaymentMethod,
	}
	if r.CustomerID.Valid {
		id := r.CustomerID.UUID
		sale.CustomerID = &id
	}
	return sale
}

func insufficient(item *catalog.Item, requested int) error {
	return &sales.InsufficientStockError{
		ItemID:    item.ID,
		Name:      item.Name,
		Requested: requested,
		OnHand:    item.OnHand,
	}
}

// ReadOnly runs fn against a consistent snapshot of items and sales.
func (s *Store) ReadOnly(ctx context.Context, fn func(r dashboard.Reader) error) error {
	var opts *sql.TxOptions
	if s.driver == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&snapshotReader{store: s, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type snapshotReader struct {
	store *Store
	tx    *sqlx.Tx
}

func (r *snapshotReader) ListItems(ctx context.Context) ([]*catalog.Item, error) {
	return listItems(ctx, r.tx)
}

func (r *snapshotReader) ListSalesByDateRange(ctx context.Context, from, to time.Time) ([]*sales.Sale, error) {
	return r.store.salesBetween(ctx, r.tx, from, to)
}
