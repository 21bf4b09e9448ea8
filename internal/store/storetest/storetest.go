// Package storetest opens throwaway SQLite stores for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"shelfpos/internal/store"
)

// Open returns a migrated in-memory store that is closed when t finishes.
// The store holds a single connection, so the database lives as long as it.
func Open(t testing.TB, opts ...store.Option) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), store.SQLite, ":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}
