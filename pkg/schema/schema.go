// Package schema reflects table and view metadata from a live PostgreSQL
// database into an in-memory catalog. The catalog listens for reload
// notifications and refreshes itself in place, so Snapshot and Lookup
// return the current shape of the database without a restart. Resources
// bound to catalog entries keep the metadata they were bound with.
package schema

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	// Follows PostgREST's schema-reload notification convention.
	reloadChannel = "restmap"
	reloadPayload = "reload schema"
)

// RelationType distinguishes reflected relations.
type RelationType string

const (
	RelationTable RelationType = "TABLE"
	RelationView  RelationType = "VIEW"
)

// Table is the reflected metadata of one table or view.
type Table struct {
	Schema      string       `json:"schema"`
	Name        string       `json:"name"`
	Type        RelationType `json:"type"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Column describes one reflected column.
type Column struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	IsNullable   bool   `json:"is_nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// ForeignKey describes a single-column foreign key reference.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// FullName returns the catalog key, schema-qualified.
func (t Table) FullName() string {
	return t.Schema + "." + t.Name
}

// Catalog caches reflected metadata for all non-system schemas. It is safe
// for concurrent use: readers take snapshots, reloads swap the map under a
// write lock.
type Catalog struct {
	pool   *pgxpool.Pool
	conn   *pgx.Conn
	logger *zap.Logger

	mu     sync.RWMutex
	tables map[string]Table

	watch  chan map[string]Table
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCatalog creates a catalog backed by pool. The catalog hijacks one
// connection from the pool for LISTEN; call Close to release it.
func NewCatalog(pool *pgxpool.Pool, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := pool.Acquire(context.Background())
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}

	return &Catalog{
		pool:   pool,
		conn:   conn.Hijack(),
		logger: logger,
		tables: make(map[string]Table),
		watch:  make(chan map[string]Table, 1),
	}, nil
}

// Init performs the initial reflection pass, retrying transient failures
// with exponential backoff, then starts listening for reload notifications.
func (c *Catalog) Init(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	reflect := func() error { return c.reload(ctx) }
	if err := backoff.Retry(reflect, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		cancel()
		return fmt.Errorf("initial reflection: %w", err)
	}

	if _, err := c.conn.Exec(ctx, "LISTEN "+reloadChannel); err != nil {
		cancel()
		return fmt.Errorf("listen %s: %w", reloadChannel, err)
	}

	c.done = make(chan struct{})
	go c.listen(ctx)
	return nil
}

// Close stops the listener, waits for it to exit, then releases the
// hijacked connection and closes the watch channel. The pool itself
// belongs to the caller and is not closed here.
func (c *Catalog) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		<-c.done
	}
	if c.conn != nil {
		c.conn.Close(context.Background())
	}
	close(c.watch)
}

// Watch returns a channel that receives a snapshot after every reload.
func (c *Catalog) Watch() <-chan map[string]Table {
	return c.watch
}

// Snapshot returns a copy of the current catalog keyed by "schema.name".
func (c *Catalog) Snapshot() map[string]Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := make(map[string]Table, len(c.tables))
	maps.Copy(snap, c.tables)
	return snap
}

// Lookup returns the reflected metadata for one relation. An empty
// schemaName defaults to public.
func (c *Catalog) Lookup(schemaName, tableName string) (Table, bool) {
	if schemaName == "" {
		schemaName = "public"
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[schemaName+"."+tableName]
	return t, ok
}

func (c *Catalog) listen(ctx context.Context) {
	defer close(c.done)
	for {
		notification, err := c.conn.WaitForNotification(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				c.logger.Warn("schema notification error", zap.Error(err))
				continue
			}
		}

		if notification.Payload != reloadPayload {
			continue
		}
		if err := c.reload(ctx); err != nil {
			c.logger.Error("schema reload failed", zap.Error(err))
		}
	}
}

func (c *Catalog) reload(ctx context.Context) error {
	tables, err := reflectAll(ctx, c.pool)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tables = tables
	c.mu.Unlock()

	select {
	case c.watch <- c.Snapshot():
	default:
	}
	return nil
}

// querier is the subset of pgx connection behavior reflection needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func reflectAll(ctx context.Context, conn querier) (map[string]Table, error) {
	tables, err := queryRelations(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}

	out := make(map[string]Table, len(tables))
	for i := range tables {
		t := &tables[i]

		cols, pkeys, err := queryColumns(ctx, conn, t.Schema, t.Name)
		if err != nil {
			return nil, fmt.Errorf("query columns %s: %w", t.FullName(), err)
		}
		t.Columns = cols
		t.PrimaryKeys = pkeys

		if t.Type == RelationTable {
			fkeys, err := queryForeignKeys(ctx, conn, t.Schema, t.Name)
			if err != nil {
				return nil, fmt.Errorf("query foreign keys %s: %w", t.FullName(), err)
			}
			t.ForeignKeys = fkeys
		}

		out[t.FullName()] = *t
	}
	return out, nil
}

func queryRelations(ctx context.Context, conn querier) ([]Table, error) {
	rows, err := conn.Query(ctx, `
		SELECT table_schema, table_name, 'TABLE'::text
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		UNION ALL
		SELECT table_schema, table_name, 'VIEW'::text
		FROM information_schema.views
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY 1, 2`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		var relType string
		if err := rows.Scan(&t.Schema, &t.Name, &relType); err != nil {
			return nil, err
		}
		t.Type = RelationType(relType)
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func queryColumns(ctx context.Context, conn querier, schemaName, tableName string) ([]Column, []string, error) {
	rows, err := conn.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = $1
					AND tc.table_name = $2
					AND kcu.column_name = c.column_name
			)
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var cols []Column
	var pkeys []string
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &col.IsPrimaryKey); err != nil {
			return nil, nil, err
		}
		cols = append(cols, col)
		if col.IsPrimaryKey {
			pkeys = append(pkeys, col.Name)
		}
	}
	return cols, pkeys, rows.Err()
}

func queryForeignKeys(ctx context.Context, conn querier, schemaName, tableName string) ([]ForeignKey, error) {
	rows, err := conn.Query(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fkeys []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		fkeys = append(fkeys, fk)
	}
	return fkeys, rows.Err()
}
