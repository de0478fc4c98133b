package credstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no credential record is persisted.
var ErrNotFound = errors.New("credential record not found")

// Record is the persisted credential pair: the opaque bearer token and a
// serialized snapshot of the user it was issued to. The snapshot may go
// stale relative to backend truth until the next verification.
type Record struct {
	Token string `json:"token"`
	User  []byte `json:"user"`
}

// Store persists a single credential record under stable, well-known keys.
//
// Lifecycle: written on successful login, cleared on logout or failed
// verification, read once at startup. Save must be atomic — a reader never
// observes a token without its user snapshot or a half-written record.
// Clear is idempotent.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}
