package schema

import (
	"context"
	"testing"
	"time"

	"github.com/restmap/restmap/internal/testutil/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCatalogReflect(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_reflect_test (
			id SERIAL PRIMARY KEY,
			name TEXT,
			price NUMERIC(12,2)
		)
	`)
	require.NoError(t, err)
	defer pool.Exec(ctx, "DROP TABLE IF EXISTS catalog_reflect_test")

	catalog, err := NewCatalog(pool, zap.NewNop())
	require.NoError(t, err)
	defer catalog.Close()

	require.NoError(t, catalog.Init(ctx))

	table, ok := catalog.Lookup("public", "catalog_reflect_test")
	require.True(t, ok)
	assert.Equal(t, RelationTable, table.Type)
	assert.Equal(t, []string{"id"}, table.PrimaryKeys)
	require.Len(t, table.Columns, 3)
	assert.Equal(t, "id", table.Columns[0].Name)
	assert.True(t, table.Columns[0].IsPrimaryKey)

	// empty schema name defaults to public
	_, ok = catalog.Lookup("", "catalog_reflect_test")
	assert.True(t, ok)
}

func TestCatalogWatch(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	catalog, err := NewCatalog(pool, zap.NewNop())
	require.NoError(t, err)
	defer catalog.Close()

	require.NoError(t, catalog.Init(ctx))

	done := make(chan bool)
	go func() {
		for tables := range catalog.Watch() {
			require.NotNil(t, tables)
			done <- true
			return
		}
	}()

	_, err = pool.Exec(ctx, "NOTIFY "+reloadChannel+", '"+reloadPayload+"'")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for schema reload notification")
	}
}

func TestCatalogCloseJoinsListener(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	catalog, err := NewCatalog(pool, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, catalog.Init(ctx))

	// close while reload notifications may still be in flight
	for range 5 {
		_, err = pool.Exec(ctx, "NOTIFY "+reloadChannel+", '"+reloadPayload+"'")
		require.NoError(t, err)
	}
	catalog.Close()

	// the watch channel closes only after the listener has exited, so
	// draining it must terminate without a send-on-closed panic
	for range catalog.Watch() {
	}
}
