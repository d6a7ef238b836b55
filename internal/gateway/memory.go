package gateway

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryGateway keeps documents in process memory. RWMutex lets concurrent
// sessions read while a single writer replaces a document.
type MemoryGateway struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
	now  func() time.Time
}

// NewMemoryGateway constructs an empty MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		docs: make(map[string]map[string]Document),
		now:  time.Now,
	}
}

// Write inserts or replaces a document.
func (m *MemoryGateway) Write(_ context.Context, collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.docs[collection]
	if !ok {
		coll = make(map[string]Document)
		m.docs[collection] = coll
	}
	coll[id] = Document{
		Collection: collection,
		ID:         id,
		Data:       append([]byte(nil), data...),
		UpdatedAt:  m.now().UTC(),
	}
	return nil
}

// Read returns a copy of the stored bytes.
func (m *MemoryGateway) Read(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc.Data...), nil
}

// Delete removes a document.
func (m *MemoryGateway) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

// List returns copies of every document in a collection ordered by id.
func (m *MemoryGateway) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0, len(m.docs[collection]))
	for _, doc := range m.docs[collection] {
		doc.Data = append([]byte(nil), doc.Data...)
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
