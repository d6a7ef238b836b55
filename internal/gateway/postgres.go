package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxConn is the subset of *pgxpool.Pool used by PostgresGateway.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresGateway stores documents as JSONB rows in the documents table
// created by database.EnsureSchema.
type PostgresGateway struct {
	pool pgxConn
}

// NewPostgresGateway wraps a pgx pool.
func NewPostgresGateway(pool pgxConn) *PostgresGateway {
	return &PostgresGateway{pool: pool}
}

// Write upserts the document.
func (g *PostgresGateway) Write(ctx context.Context, collection, id string, data []byte) error {
	_, err := g.pool.Exec(ctx, `
		INSERT INTO documents (collection, doc_id, data, updated_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (collection, doc_id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, collection, id, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Read returns the stored JSON.
func (g *PostgresGateway) Read(ctx context.Context, collection, id string) ([]byte, error) {
	var data string
	row := g.pool.QueryRow(ctx, `
		SELECT data::text FROM documents WHERE collection=$1 AND doc_id=$2
	`, collection, id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return []byte(data), nil
}

// Delete removes the row if present.
func (g *PostgresGateway) Delete(ctx context.Context, collection, id string) error {
	if _, err := g.pool.Exec(ctx, `DELETE FROM documents WHERE collection=$1 AND doc_id=$2`, collection, id); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns every document of a collection ordered by id.
func (g *PostgresGateway) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT doc_id, data::text, updated_at FROM documents WHERE collection=$1 ORDER BY doc_id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var (
			doc  = Document{Collection: collection}
			data string
		)
		if err := rows.Scan(&doc.ID, &data, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Data = []byte(data)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}
