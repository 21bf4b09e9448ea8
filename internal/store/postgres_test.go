package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfpos/internal/catalog"
	"shelfpos/internal/dashboard"
	"shelfpos/internal/pricing"
	"shelfpos/internal/sales"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(sqlx.NewDb(db, Postgres),
		WithLockTimeout(2*time.Second),
		WithClock(func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }),
	)
	return s, mock
}

func itemRows(id uuid.UUID, name string, onHand int) *sqlmock.Rows {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "name", "generic_name", "manufacturer", "category", "dosage", "form", "batch_number",
		"expiry", "unit_cost", "unit_price", "on_hand", "min_stock", "created_at", "updated_at",
	}).AddRow(
		id.String(), name, "", "", "", "", "", "",
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "4.00", "10.00", onHand, 0, ts, ts,
	)
}

func TestWithinTxRollsBackOnShortStock(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL lock_timeout = '2000ms'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE stocked_items\s+SET on_hand = on_hand - \$1, updated_at = \$2\s+WHERE id = \$3 AND on_hand >= \$4`).
		WithArgs(2, sqlmock.AnyArg(), id, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)SELECT .* FROM stocked_items WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(itemRows(id, "Syrup", 1))
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(tx sales.Tx) error {
		return tx.DecrementStock(context.Background(), id, 2)
	})

	var stockErr *sales.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Syrup", stockErr.Name)
	assert.Equal(t, 1, stockErr.OnHand)
	assert.Equal(t, 2, stockErr.Requested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommitsSale(t *testing.T) {
	s, mock := newMockStore(t)
	itemID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE stocked_items`).
		WithArgs(1, sqlmock.AnyArg(), itemID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sales`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sale_lines`).
		WithArgs(sqlmock.AnyArg(), 0, itemID, "Syrup", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var saved *sales.Sale
	err := s.WithinTx(context.Background(), func(tx sales.Tx) error {
		if err := tx.DecrementStock(context.Background(), itemID, 1); err != nil {
			return err
		}
		var err error
		saved, err = tx.AppendSale(context.Background(), &sales.Sale{
			CreatedAt:     time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
			CustomerName:  sales.WalkInCustomer,
			PaymentMethod: "cash",
			Lines: []sales.SaleLine{{
				ItemID: itemID, Name: "Syrup", Quantity: 1,
				UnitPrice: decimal.RequireFromString("10.00"), LineTotal: decimal.RequireFromString("10.00"),
			}},
			Pricing: pricing.Breakdown{GrandTotal: decimal.RequireFromString("10.00")},
		})
		return err
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockTimeoutMapsToDeadline(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE stocked_items`).
		WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(tx sales.Tx) error {
		return tx.DecrementStock(context.Background(), id, 1)
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Equal(t, "timeout", sales.Kind(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO stocked_items`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.CreateItem(context.Background(), &catalog.Item{ID: uuid.New(), Name: "Aspirin", BatchNumber: "B1"})
	assert.ErrorIs(t, err, catalog.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadOnlyUsesTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT .* FROM stocked_items ORDER BY name`).
		WillReturnRows(itemRows(uuid.New(), "Aspirin", 3))
	mock.ExpectQuery(`(?s)SELECT .* FROM sales\s+WHERE created_at >= \$1 AND created_at < \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	err := s.ReadOnly(context.Background(), func(r dashboard.Reader) error {
		items, err := r.ListItems(context.Background())
		if err != nil {
			return err
		}
		assert.Len(t, items, 1)
		assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("10")))

		got, err := r.ListSalesByDateRange(context.Background(), time.Now().Add(-time.Hour), time.Now())
		assert.Empty(t, got)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
