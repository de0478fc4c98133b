package classauth

import (
	"fmt"
	"time"

	"github.com/campusware/classauth/credstore"
	"github.com/campusware/classauth/permission"
)

// Builder assembles a Session. Configure during initialization, call Build
// once, and treat the result as the single session owner for the process.
type Builder struct {
	config    Config
	backend   Backend
	store     credstore.Store
	grants    *permission.Grants
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New creates a Builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBackend sets the auth backend. Required.
func (b *Builder) WithBackend(backend Backend) *Builder {
	b.backend = backend
	return b
}

// WithCredentialStore sets the credential store. Defaults to an in-memory
// store, which does not survive restarts.
func (b *Builder) WithCredentialStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithGrants replaces the default role → permission table. The table is
// frozen during Build if the caller has not frozen it already.
func (b *Builder) WithGrants(grants *permission.Grants) *Builder {
	b.grants = grants
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the time source. Tests use it to pin token expiry
// checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and constructs the Session in its
// initial state: no user, not authenticated, loading until the first
// Restore resolves.
func (b *Builder) Build() (*Session, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder already used", ErrSessionNotReady)
	}
	if b.backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrSessionNotReady)
	}
	if err := validateConfig(b.config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotReady, err)
	}

	store := b.store
	if store == nil {
		store = credstore.NewMemory()
	}
	grants := b.grants
	if grants == nil {
		grants = permission.Default()
	}
	if !grants.Frozen() {
		grants.Freeze()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	b.built = true

	return &Session{
		config:      b.config,
		backend:     b.backend,
		store:       store,
		grants:      grants,
		audit:       newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:     NewMetrics(b.config.Metrics),
		now:         now,
		loading:     true,
		subscribers: make(map[uint64]func(Snapshot)),
	}, nil
}
