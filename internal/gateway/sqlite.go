package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteTimeLayout = time.RFC3339Nano

// SQLiteGateway stores documents in a single SQLite table. It is the
// zero-infrastructure backend for local development.
type SQLiteGateway struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and ensures the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	g := NewSQLiteGateway(db)
	if err := g.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

// NewSQLiteGateway wraps an already opened database.
func NewSQLiteGateway(db *sql.DB) *SQLiteGateway {
	return &SQLiteGateway{db: db}
}

// EnsureSchema creates the documents table if needed.
func (g *SQLiteGateway) EnsureSchema(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, doc_id)
)`
	if _, err := g.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

// Write upserts the document.
func (g *SQLiteGateway) Write(ctx context.Context, collection, id string, data []byte) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, doc_id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		collection, id, string(data), time.Now().UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("upsert document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Read returns the stored JSON.
func (g *SQLiteGateway) Read(ctx context.Context, collection, id string) ([]byte, error) {
	var data string
	err := g.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND doc_id = ?`, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return []byte(data), nil
}

// Delete removes the row if present.
func (g *SQLiteGateway) Delete(ctx context.Context, collection, id string) error {
	if _, err := g.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND doc_id = ?`, collection, id); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns every document of a collection ordered by id.
func (g *SQLiteGateway) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT doc_id, data, updated_at FROM documents WHERE collection = ? ORDER BY doc_id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var id, data, updated string
		if err := rows.Scan(&id, &data, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		ts, _ := time.Parse(sqliteTimeLayout, updated)
		out = append(out, Document{Collection: collection, ID: id, Data: []byte(data), UpdatedAt: ts})
	}
	return out, rows.Err()
}
