package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/meridiandb/meridian/pkg/types"
	_ "github.com/mattn/go-sqlite3"
)

// schemaSQL creates the catalog tables. Upserts rely on the UNIQUE
// constraints, so they must not change without a migration.
var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS topics (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS query_pools (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS namespaces (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		name           TEXT NOT NULL UNIQUE,
		topic_id       INTEGER NOT NULL REFERENCES topics(id),
		query_pool_id  INTEGER NOT NULL REFERENCES query_pools(id),
		retention      TEXT NOT NULL,
		schema_version INTEGER NOT NULL DEFAULT 0,
		created_at     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tables (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		namespace_id INTEGER NOT NULL REFERENCES namespaces(id),
		name         TEXT NOT NULL,
		UNIQUE(namespace_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS columns (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		table_id INTEGER NOT NULL REFERENCES tables(id),
		name     TEXT NOT NULL,
		type     TEXT NOT NULL,
		UNIQUE(table_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tables_namespace ON tables(namespace_id)`,
	`CREATE INDEX IF NOT EXISTS idx_columns_table ON columns(table_id)`,
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	dbPath string
	mu     sync.Mutex // Write-only lock (reads don't need this)
}

// NewSQLiteCatalog opens (creating if necessary) a SQLite-backed catalog
// at the given path.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	// Read connection pool for schema lookups on the hot write path
	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	c := &SQLiteCatalog{
		db:     db,
		readDB: readDB,
		dbPath: dbPath,
	}

	if err := c.initSchema(); err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("catalog: failed to initialize schema: %w", err)
	}

	return c, nil
}

// initSchema creates all required tables and indexes.
func (c *SQLiteCatalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range schemaSQL {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// CreateOrGetTopic upserts a topic by name.
func (c *SQLiteCatalog) CreateOrGetTopic(ctx context.Context, name string) (*Topic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO topics (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return nil, fmt.Errorf("catalog: failed to upsert topic %q: %w", name, err)
	}

	topic := &Topic{Name: name}
	err := c.db.QueryRowContext(ctx, `SELECT id FROM topics WHERE name = ?`, name).Scan(&topic.ID)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read back topic %q: %w", name, err)
	}
	return topic, nil
}

// GetTopicByName returns a topic, or ErrTopicNotFound.
func (c *SQLiteCatalog) GetTopicByName(ctx context.Context, name string) (*Topic, error) {
	topic := &Topic{Name: name}
	err := c.readDB.QueryRowContext(ctx, `SELECT id FROM topics WHERE name = ?`, name).Scan(&topic.ID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog: topic %q: %w", name, ErrTopicNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query topic %q: %w", name, err)
	}
	return topic, nil
}

// CreateOrGetQueryPool upserts a query pool by name.
func (c *SQLiteCatalog) CreateOrGetQueryPool(ctx context.Context, name string) (*QueryPool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO query_pools (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return nil, fmt.Errorf("catalog: failed to upsert query pool %q: %w", name, err)
	}

	pool := &QueryPool{Name: name}
	err := c.db.QueryRowContext(ctx, `SELECT id FROM query_pools WHERE name = ?`, name).Scan(&pool.ID)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read back query pool %q: %w", name, err)
	}
	return pool, nil
}

// CreateOrGetNamespace upserts a namespace by name. The insert is a
// no-op when the namespace already exists, so concurrent creators all
// observe the same record.
func (c *SQLiteCatalog) CreateOrGetNamespace(ctx context.Context, name string, topicID types.TopicID, poolID types.QueryPoolID, retention string) (*Namespace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO namespaces (name, topic_id, query_pool_id, retention, created_at)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		name, topicID, poolID, retention, time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("catalog: failed to upsert namespace %q: %w", name, err)
	}

	return c.queryNamespace(ctx, c.db, name)
}

// GetNamespaceByName returns a namespace record, or ErrNamespaceNotFound.
func (c *SQLiteCatalog) GetNamespaceByName(ctx context.Context, name string) (*Namespace, error) {
	return c.queryNamespace(ctx, c.readDB, name)
}

func (c *SQLiteCatalog) queryNamespace(ctx context.Context, db *sql.DB, name string) (*Namespace, error) {
	ns := &Namespace{Name: name}
	err := db.QueryRowContext(ctx,
		`SELECT id, topic_id, query_pool_id, retention FROM namespaces WHERE name = ?`, name).
		Scan(&ns.ID, &ns.TopicID, &ns.QueryPoolID, &ns.Retention)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog: namespace %q: %w", name, ErrNamespaceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query namespace %q: %w", name, err)
	}
	return ns, nil
}

// GetNamespaceSchema returns the full known schema of a namespace.
func (c *SQLiteCatalog) GetNamespaceSchema(ctx context.Context, name string) (*types.NamespaceSchema, error) {
	schema := &types.NamespaceSchema{
		Name:   name,
		Tables: make(map[string]*types.TableSchema),
	}

	err := c.readDB.QueryRowContext(ctx,
		`SELECT id, schema_version FROM namespaces WHERE name = ?`, name).
		Scan(&schema.ID, &schema.Version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog: namespace %q: %w", name, ErrNamespaceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query namespace %q: %w", name, err)
	}

	rows, err := c.readDB.QueryContext(ctx,
		`SELECT t.id, t.name, c.name, c.type
		 FROM tables t LEFT JOIN columns c ON c.table_id = t.id
		 WHERE t.namespace_id = ?
		 ORDER BY t.name, c.name`, schema.ID)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query schema for namespace %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableID    types.TableID
			tableName  string
			columnName sql.NullString
			columnType sql.NullString
		)
		if err := rows.Scan(&tableID, &tableName, &columnName, &columnType); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan schema row: %w", err)
		}

		table, ok := schema.Tables[tableName]
		if !ok {
			table = &types.TableSchema{ID: tableID, Columns: make(map[string]types.ColumnType)}
			schema.Tables[tableName] = table
		}
		if columnName.Valid {
			table.Columns[columnName.String] = types.ColumnType(columnType.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: failed to iterate schema rows: %w", err)
	}

	return schema, nil
}

// ExtendTableSchema atomically adds columns to a table of the namespace.
// The whole extension runs in one transaction: a type conflict on any
// column rolls back every change, including the table creation.
func (c *SQLiteCatalog) ExtendTableSchema(ctx context.Context, id types.NamespaceID, table string, columns map[string]types.ColumnType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: failed to begin schema extension: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tables (namespace_id, name) VALUES (?, ?)
		 ON CONFLICT(namespace_id, name) DO NOTHING`, id, table); err != nil {
		return fmt.Errorf("catalog: failed to upsert table %q: %w", table, err)
	}

	var tableID types.TableID
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM tables WHERE namespace_id = ? AND name = ?`, id, table).Scan(&tableID); err != nil {
		return fmt.Errorf("catalog: failed to read back table %q: %w", table, err)
	}

	for name, colType := range columns {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT type FROM columns WHERE table_id = ? AND name = ?`, tableID, name).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO columns (table_id, name, type) VALUES (?, ?, ?)
				 ON CONFLICT(table_id, name) DO NOTHING`, tableID, name, colType); err != nil {
				return fmt.Errorf("catalog: failed to insert column %q.%q: %w", table, name, err)
			}
		case err != nil:
			return fmt.Errorf("catalog: failed to query column %q.%q: %w", table, name, err)
		case existing != string(colType):
			return fmt.Errorf("catalog: column %q.%q already has type %q, write uses %q: %w",
				table, name, existing, colType, ErrColumnTypeConflict)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE namespaces SET schema_version = schema_version + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("catalog: failed to advance schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: failed to commit schema extension: %w", err)
	}
	return nil
}

// Close closes the catalog database connections.
func (c *SQLiteCatalog) Close() error {
	var firstErr error
	if err := c.readDB.Close(); err != nil {
		firstErr = err
	}
	if err := c.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
