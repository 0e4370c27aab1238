// ABOUTME: In-memory DocumentStore used by tests and the "memory" driver
// ABOUTME: Can simulate an unreachable backend with SetUnavailable

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errMockUnavailable = errors.New("mock backend offline")

type mockEntry struct {
	id      string
	doc     Document
	deleted bool
}

// MockStore is an in-memory DocumentStore implementation.
type MockStore struct {
	mu          sync.RWMutex
	entries     []*mockEntry          // insertion order
	byID        map[string]*mockEntry // keyed by document ID
	unavailable bool
	now         func() time.Time
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		byID: make(map[string]*mockEntry),
		now:  time.Now,
	}
}

// SetUnavailable makes every subsequent call fail with ErrUnavailable until
// it is called again with false.
func (m *MockStore) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = down
}

// SetClock overrides the time source used for "created".
func (m *MockStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockStore) check(op string) error {
	if m.unavailable {
		return unavailable(op, errMockUnavailable)
	}
	return nil
}

// Put stores a new document.
func (m *MockStore) Put(ctx context.Context, doc Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("inserting document"); err != nil {
		return "", err
	}
	clean, _, err := prepare(doc, m.now())
	if err != nil {
		return "", err
	}
	e := &mockEntry{id: uuid.New().String(), doc: clean}
	m.entries = append(m.entries, e)
	m.byID[e.id] = e
	return e.id, nil
}

// Get retrieves an active document.
func (m *MockStore) Get(ctx context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check("loading document"); err != nil {
		return nil, err
	}
	e, ok := m.byID[id]
	if !ok || e.deleted {
		return nil, ErrNotFound
	}
	return withID(e.id, e.doc, false), nil
}

// Delete soft-deletes a document.
func (m *MockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("deleting document"); err != nil {
		return err
	}
	e, ok := m.byID[id]
	if !ok || e.deleted {
		return ErrNotFound
	}
	e.deleted = true
	return nil
}

// ListAll returns every document in insertion order.
func (m *MockStore) ListAll(ctx context.Context) ([]KeyValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check("listing documents"); err != nil {
		return nil, err
	}
	out := make([]KeyValue, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, KeyValue{Key: e.id, Value: withID(e.id, e.doc, e.deleted)})
	}
	return out, nil
}

// QueryBySortedField returns active documents ordered by field.
func (m *MockStore) QueryBySortedField(ctx context.Context, field string, opts QueryOptions) ([]Row, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	all, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return queryEntries(all, field, opts), nil
}

// Ping reports whether the mock is simulating an outage.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check("ping")
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements DocumentStore
var _ DocumentStore = (*MockStore)(nil)
