// Package gateway is the key-addressed document store behind every form. A
// document lives at (collection path, document id) and is always written
// whole; backends differ only in where the bytes end up.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrNotFound is returned by Read when no document exists at the address.
var ErrNotFound = errors.New("document not found")

// Collection paths and fixed document ids used by the dashboard.
const (
	ConnectionsCollection = "viewerAgentConnections"
	CurrentReportID       = "current"
)

// ReportCollection is the per-agent collection holding the current report.
// The identity is escaped as a single segment, so distinct identities never
// share a collection.
func ReportCollection(identity string) string {
	return "agents/" + url.PathEscape(identity) + "/reports"
}

// Document is one stored entry as returned by List.
type Document struct {
	Collection string
	ID         string
	Data       []byte
	UpdatedAt  time.Time
}

// Gateway reads and writes whole documents.
type Gateway interface {
	Write(ctx context.Context, collection, id string, data []byte) error
	// Read returns ErrNotFound (possibly wrapped) when the document is absent.
	Read(ctx context.Context, collection, id string) ([]byte, error)
	// Delete succeeds when the document is already gone.
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
}

// WriteJSON marshals v and writes it at the address.
func WriteJSON(ctx context.Context, g Gateway, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	return g.Write(ctx, collection, id, data)
}

// ReadJSON reads the document at the address into v.
func ReadJSON(ctx context.Context, g Gateway, collection, id string, v any) error {
	data, err := g.Read(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}
