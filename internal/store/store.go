// Package store persists items, directory entries and sales in PostgreSQL or
// SQLite, and provides the commit unit the sale engine runs in.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema/*.sql
var schemaFS embed.FS

var (
	ErrUnknownDriver   = errors.New("unknown database driver")
	errUniqueViolation = errors.New("unique constraint violation")
)

const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// sqliteTimeLayout is fixed-width so that stored timestamps order
// lexicographically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000-07:00"

func init() {
	sqlx.BindDriver(SQLite, sqlx.QUESTION)
}

// Store is the SQL-backed repository for every domain package.
type Store struct {
	db          *sqlx.DB
	driver      string
	lockTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
	tracer      trace.Tracer
}

type Option func(*Store)

// WithLockTimeout bounds how long a commit waits for a row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger.With(zap.String("component", "store")) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open connects to the database named by driver and dsn and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case Postgres:
	case SQLite:
		dsn = withPragmas(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == SQLite {
		// One connection serializes writers; a second would see SQLITE_BUSY
		// instead of waiting.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an open connection pool.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:          db,
		driver:      db.DriverName(),
		lockTimeout: 5 * time.Second,
		now:         time.Now,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("shelfpos/store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + s.driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	s.logger.Info("schema migrated", zap.String("driver", s.driver))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for tooling and tests.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// ts converts t into the representation stored for the active driver.
func (s *Store) ts(t time.Time) any {
	if s.driver == SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// mapError translates driver errors into package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", errUniqueViolation, pqErr.Message)
		case "55P03", "57014":
			return fmt.Errorf("%w: %s", context.DeadlineExceeded, pqErr.Message)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", errUniqueViolation, liteErr.Error())
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"):
			return fmt.Errorf("%w: %s", errUniqueViolation, liteErr.Error())
		case code&0xff == sqlite3.SQLITE_BUSY:
			return fmt.Errorf("%w: %s", context.DeadlineExceeded, liteErr.Error())
		}
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
