package classauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campusware/classauth/credstore"
	"github.com/campusware/classauth/permission"
	"github.com/campusware/classauth/token"
)

// Session is the single source of truth for "who is using the portal right
// now". It owns the in-memory state and the persisted credential record
// exclusively; no other component writes either.
//
// All methods are safe for concurrent use. Network calls are never made
// while the state lock is held; async results are committed only if the
// session generation has not advanced in the meantime (the stale-response
// guard), so a logout can never be undone by a slow login response.
type Session struct {
	config  Config
	backend Backend
	store   credstore.Store
	grants  *permission.Grants
	audit   *auditDispatcher
	metrics *Metrics
	now     func() time.Time

	mu            sync.RWMutex
	user          *User
	bearer        string
	authenticated bool
	loading       bool
	restoreOnce   bool
	generation    uint64
	subscribers   map[uint64]func(Snapshot)
	nextSubID     uint64
}

// Snapshot returns an immutable view of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Authenticated: s.authenticated,
		Loading:       s.loading,
		Generation:    s.generation,
		Permissions:   s.grants,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Token returns the current bearer token, or "" when unauthenticated.
// Service modules use it to authorize their own backend calls.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bearer
}

// Subscribe registers fn to be invoked with a snapshot after every committed
// state change. The returned cancel function removes the subscription.
// Callbacks run outside the session lock, on the mutating goroutine.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.RLock()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Restore resolves the persisted credential record into a definite session
// state. It runs at most once per Session; later calls return the current
// snapshot unchanged.
//
// Failures are never surfaced: an absent record, a locally expired token, a
// rejected verification, and an unreachable backend all resolve to the
// unauthenticated state (audited, counted, not returned). Loading becomes
// false exactly once, in every path.
func (s *Session) Restore(ctx context.Context) Snapshot {
	s.mu.Lock()
	if s.restoreOnce {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.restoreOnce = true
	gen := s.generation
	s.mu.Unlock()

	rec, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			s.emit(ctx, AuditEvent{EventType: EventRestore, Error: err.Error()})
		}
		s.metrics.Inc(MetricRestoreEmpty)
		return s.finishRestore(ctx, gen, nil, "")
	}

	if token.Expired(rec.Token, s.config.Restore.ExpirySkew, s.now()) {
		_ = s.store.Clear(ctx)
		s.metrics.Inc(MetricRestoreExpiredLocal)
		s.emit(ctx, AuditEvent{EventType: EventRestore, Error: "token expired locally"})
		return s.finishRestore(ctx, gen, nil, "")
	}

	verifyCtx := ctx
	if s.config.Restore.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, s.config.Restore.VerifyTimeout)
		defer cancel()
	}

	started := s.now()
	usr, err := s.backend.Me(verifyCtx, rec.Token)
	s.metrics.Observe(HistogramVerifyLatency, s.now().Sub(started))
	if err != nil {
		// Network failure and invalid token fail safe to logged-out alike.
		_ = s.store.Clear(ctx)
		s.metrics.Inc(MetricRestoreVerifyFailed)
		s.emit(ctx, AuditEvent{EventType: EventRestore, Error: err.Error()})
		return s.finishRestore(ctx, gen, nil, "")
	}

	s.metrics.Inc(MetricRestoreSuccess)
	s.emit(ctx, AuditEvent{
		EventType: EventRestore,
		UserID:    usr.UserID,
		Role:      string(usr.Role),
		Success:   true,
	})

	// Refresh the persisted snapshot with backend truth; best-effort.
	if data, merr := json.Marshal(usr); merr == nil {
		_ = s.store.Save(ctx, credstore.Record{Token: rec.Token, User: data})
	}

	return s.finishRestore(ctx, gen, usr, rec.Token)
}

// finishRestore commits the restore outcome. Loading drops regardless of the
// outcome; the user is applied only if no login or logout committed while
// the restore was in flight.
func (s *Session) finishRestore(_ context.Context, gen uint64, usr *User, bearer string) Snapshot {
	s.mu.Lock()
	s.loading = false
	if usr != nil && s.generation == gen {
		s.user = usr
		s.bearer = bearer
		s.authenticated = true
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// Login authenticates against the backend and commits atomically: the
// credential record is persisted first, then the in-memory state flips, then
// subscribers are notified. Any failure leaves the session unchanged.
//
// If the session generation advanced while the request was in flight — a
// logout landed first — the response is discarded and ErrSessionSuperseded
// returned.
func (s *Session) Login(ctx context.Context, creds Credentials) (*User, error) {
	if err := validateInput(creds); err != nil {
		s.metrics.Inc(MetricLoginFailure)
		return nil, err
	}

	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	res, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.metrics.Inc(MetricLoginFailure)
		s.emit(ctx, AuditEvent{EventType: EventLogin, UserID: creds.UserID, Error: err.Error()})
		return nil, err
	}
	usr := res.User
	if !usr.Role.Valid() {
		s.metrics.Inc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: backend returned role %q", ErrRoleInvalid, usr.Role)
	}

	data, err := json.Marshal(usr)
	if err != nil {
		return nil, fmt.Errorf("%w: encode user snapshot: %v", ErrCredentialStore, err)
	}
	if err := s.store.Save(ctx, credstore.Record{Token: res.AccessToken, User: data}); err != nil {
		s.metrics.Inc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: %v", ErrCredentialStore, err)
	}

	s.mu.Lock()
	if s.generation != gen {
		repair, stillOut := s.repairRecordLocked()
		s.mu.Unlock()
		// The record saved above must not outlive the discarded login: clear
		// it when the session is out, restore the committed one otherwise.
		if stillOut {
			_ = s.store.Clear(ctx)
		} else if repair != nil {
			_ = s.store.Save(ctx, *repair)
		}
		s.metrics.Inc(MetricLoginSuperseded)
		s.emit(ctx, AuditEvent{EventType: EventLoginStale, UserID: usr.UserID})
		return nil, ErrSessionSuperseded
	}
	s.user = &usr
	s.bearer = res.AccessToken
	s.authenticated = true
	s.generation++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.metrics.Inc(MetricLoginSuccess)
	s.emit(ctx, AuditEvent{
		EventType: EventLogin,
		UserID:    usr.UserID,
		Role:      string(usr.Role),
		Success:   true,
	})

	out := usr
	return &out, nil
}

// repairRecordLocked builds the credential record matching the current
// in-memory state so a superseded operation can undo its premature Save.
// Callers hold s.mu.
func (s *Session) repairRecordLocked() (record *credstore.Record, stillOut bool) {
	if !s.authenticated || s.user == nil {
		return nil, true
	}
	data, err := json.Marshal(*s.user)
	if err != nil {
		return nil, false
	}
	return &credstore.Record{Token: s.bearer, User: data}, false
}

// Logout resets the session. Local cleanup always happens: the in-memory
// state is cleared first and the generation advances so in-flight logins
// cannot resurrect the session. The backend notification is best-effort; its
// failure is audited, never returned. A credential store failure is returned
// after local cleanup. Idempotent.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	bearer := s.bearer
	var userID string
	if s.user != nil {
		userID = s.user.UserID
	}
	s.user = nil
	s.bearer = ""
	s.authenticated = false
	s.generation++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.metrics.Inc(MetricLogout)

	if bearer != "" {
		if err := s.backend.Logout(ctx, bearer); err != nil {
			s.emit(ctx, AuditEvent{EventType: EventLogout, UserID: userID, Error: err.Error()})
		} else {
			s.emit(ctx, AuditEvent{EventType: EventLogout, UserID: userID, Success: true})
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialStore, err)
	}
	return nil
}

// Register delegates account creation to the backend. Registration does not
// imply login; session state is never touched.
func (s *Session) Register(ctx context.Context, reg Registration) (*User, error) {
	if reg.Role == "" {
		reg.Role = RoleStudent
	}
	if err := validateInput(reg); err != nil {
		s.metrics.Inc(MetricRegisterFailure)
		return nil, err
	}

	usr, err := s.backend.Register(ctx, reg)
	if err != nil {
		s.metrics.Inc(MetricRegisterFailure)
		s.emit(ctx, AuditEvent{EventType: EventRegister, UserID: reg.UserID, Error: err.Error()})
		return nil, err
	}

	s.metrics.Inc(MetricRegisterSuccess)
	s.emit(ctx, AuditEvent{
		EventType: EventRegister,
		UserID:    usr.UserID,
		Role:      string(usr.Role),
		Success:   true,
	})
	return usr, nil
}

// UpdateProfile updates the authenticated user's own record and refreshes
// both the in-memory user and the persisted snapshot under the same
// commit-or-reject and stale-generation rules as Login.
func (s *Session) UpdateProfile(ctx context.Context, update UserUpdate) (*User, error) {
	if err := validateInput(update); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if !s.authenticated || s.user == nil {
		s.mu.RUnlock()
		return nil, ErrNotAuthenticated
	}
	gen := s.generation
	bearer := s.bearer
	id := s.user.ID
	s.mu.RUnlock()

	usr, err := s.backend.UpdateUser(ctx, bearer, id, update)
	if err != nil {
		s.metrics.Inc(MetricProfileUpdateFailure)
		s.emit(ctx, AuditEvent{EventType: EventProfileUpdate, Error: err.Error()})
		return nil, err
	}

	data, err := json.Marshal(usr)
	if err != nil {
		return nil, fmt.Errorf("%w: encode user snapshot: %v", ErrCredentialStore, err)
	}
	if err := s.store.Save(ctx, credstore.Record{Token: bearer, User: data}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialStore, err)
	}

	s.mu.Lock()
	if s.generation != gen {
		repair, stillOut := s.repairRecordLocked()
		s.mu.Unlock()
		if stillOut {
			_ = s.store.Clear(ctx)
		} else if repair != nil {
			_ = s.store.Save(ctx, *repair)
		}
		return nil, ErrSessionSuperseded
	}
	u := *usr
	s.user = &u
	s.generation++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.metrics.Inc(MetricProfileUpdateSuccess)
	s.emit(ctx, AuditEvent{
		EventType: EventProfileUpdate,
		UserID:    usr.UserID,
		Role:      string(usr.Role),
		Success:   true,
	})
	return usr, nil
}

// ChangePassword changes the authenticated user's password. No session state
// changes; the bearer token remains valid per the backend contract.
func (s *Session) ChangePassword(ctx context.Context, change PasswordChange) error {
	if err := validateInput(change); err != nil {
		return err
	}

	s.mu.RLock()
	if !s.authenticated {
		s.mu.RUnlock()
		return ErrNotAuthenticated
	}
	bearer := s.bearer
	var userID string
	if s.user != nil {
		userID = s.user.UserID
	}
	s.mu.RUnlock()

	if err := s.backend.ChangePassword(ctx, bearer, change); err != nil {
		s.emit(ctx, AuditEvent{EventType: EventPasswordChange, UserID: userID, Error: err.Error()})
		return err
	}

	s.metrics.Inc(MetricPasswordChange)
	s.emit(ctx, AuditEvent{EventType: EventPasswordChange, UserID: userID, Success: true})
	return nil
}

// HasRole reports whether the current user's role equals any of the given
// roles. False when no user is present.
func (s *Session) HasRole(roles ...Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return false
	}
	return roleIn(s.user.Role, roles)
}

// HasPermission reports whether the current user's role grants the
// permission token, directly or via the admin wildcard. False when no user
// is present.
func (s *Session) HasPermission(perm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return false
	}
	return s.grants.Allows(string(s.user.Role), perm)
}

// Authorize evaluates the requirement against the current snapshot and
// records the decision in the metrics counters.
func (s *Session) Authorize(req Requirement) Decision {
	decision := Evaluate(s.Snapshot(), req)
	switch decision {
	case DecisionLoading:
		s.metrics.Inc(MetricGuardLoading)
	case DecisionRedirectLogin:
		s.metrics.Inc(MetricGuardRedirectLogin)
	case DecisionDenied:
		if len(req.Roles) > 0 && !s.HasRole(req.Roles...) {
			s.metrics.Inc(MetricGuardDeniedRole)
		} else {
			s.metrics.Inc(MetricGuardDeniedPermission)
		}
	case DecisionAllowed:
		s.metrics.Inc(MetricGuardAllowed)
	}
	return decision
}

// Grants exposes the frozen role → permission table.
func (s *Session) Grants() *permission.Grants {
	return s.grants
}

// Metrics exposes the session's counters so collaborating components (the
// role router, embedding applications) can record into the same set.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms. Exporters poll it.
func (s *Session) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped by a full buffer.
func (s *Session) AuditDropped() uint64 {
	return s.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The session is unusable for
// auditing afterwards; state queries keep working.
func (s *Session) Close() {
	s.audit.Close()
}

func (s *Session) emit(ctx context.Context, event AuditEvent) {
	if s.audit == nil {
		return
	}
	event.Timestamp = s.now()
	s.audit.Emit(ctx, event)
}
