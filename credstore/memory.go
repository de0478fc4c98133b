package credstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It does not survive a restart; intended for
// tests and for embedders that manage persistence themselves.
type Memory struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load implements Store.
func (m *Memory) Load(context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec == nil {
		return Record{}, ErrNotFound
	}
	rec := Record{Token: m.rec.Token, User: append([]byte(nil), m.rec.User...)}
	return rec, nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := Record{Token: rec.Token, User: append([]byte(nil), rec.User...)}
	m.rec = &stored
	return nil
}

// Clear implements Store.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec = nil
	return nil
}
