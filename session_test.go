package classauth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campusware/classauth/credstore"
	"github.com/campusware/classauth/permission"
)

/*
====================================
TEST FIXTURES
====================================
*/

var (
	studentUser = User{
		ID: 1, UserID: "1AB21CS001", Username: "asha", FullName: "Asha Rao",
		Role: RoleStudent, IsActive: true,
	}
	professorUser = User{
		ID: 2, UserID: "PROF-042", Username: "drkumar", FullName: "Dr. Kumar",
		Role: RoleProfessor, IsActive: true,
	}
	adminUser = User{
		ID: 3, UserID: "admin", Username: "admin", FullName: "Portal Admin",
		Role: RoleAdmin, IsActive: true,
	}
)

// fakeBackend lets each test swap in exactly the behavior it needs.
type fakeBackend struct {
	mu          sync.Mutex
	loginFn     func(ctx context.Context, creds Credentials) (*LoginResult, error)
	registerFn  func(ctx context.Context, reg Registration) (*User, error)
	meFn        func(ctx context.Context, token string) (*User, error)
	updateFn    func(ctx context.Context, token string, id int, update UserUpdate) (*User, error)
	passwordFn  func(ctx context.Context, token string, change PasswordChange) error
	logoutFn    func(ctx context.Context, token string) error
	meCalls     int
	logoutCalls int
}

func (f *fakeBackend) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if f.loginFn == nil {
		return nil, ErrInvalidCredentials
	}
	return f.loginFn(ctx, creds)
}

func (f *fakeBackend) Register(ctx context.Context, reg Registration) (*User, error) {
	if f.registerFn == nil {
		return nil, ErrBackendUnavailable
	}
	return f.registerFn(ctx, reg)
}

func (f *fakeBackend) Me(ctx context.Context, token string) (*User, error) {
	f.mu.Lock()
	f.meCalls++
	f.mu.Unlock()
	if f.meFn == nil {
		return nil, ErrSessionExpired
	}
	return f.meFn(ctx, token)
}

func (f *fakeBackend) UpdateUser(ctx context.Context, token string, id int, update UserUpdate) (*User, error) {
	if f.updateFn == nil {
		return nil, ErrBackendUnavailable
	}
	return f.updateFn(ctx, token, id, update)
}

func (f *fakeBackend) ChangePassword(ctx context.Context, token string, change PasswordChange) error {
	if f.passwordFn == nil {
		return ErrBackendUnavailable
	}
	return f.passwordFn(ctx, token, change)
}

func (f *fakeBackend) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx, token)
}

func (f *fakeBackend) meCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls
}

func (f *fakeBackend) logoutCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

// loginAs is a loginFn accepting any credentials for a fixed user.
func loginAs(u User, token string) func(context.Context, Credentials) (*LoginResult, error) {
	return func(_ context.Context, _ Credentials) (*LoginResult, error) {
		return &LoginResult{AccessToken: token, TokenType: "bearer", User: u}, nil
	}
}

func newTestSession(t *testing.T, backend Backend, store credstore.Store) *Session {
	t.Helper()
	b := New().WithBackend(backend)
	if store != nil {
		b.WithCredentialStore(store)
	}
	session, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "1AB21CS001",
		"role": "student",
		"exp":  exp.Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func seedStore(t *testing.T, store credstore.Store, token string, u User) {
	t.Helper()
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if err := store.Save(context.Background(), credstore.Record{Token: token, User: data}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

/*
====================================
RESTORE
====================================
*/

func TestRestoreEmptyStoreResolvesUnauthenticated(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, nil)

	if !session.Snapshot().Loading {
		t.Fatal("expected loading before restore")
	}

	snap := session.Restore(context.Background())

	if snap.Loading {
		t.Fatal("expected loading to drop after restore")
	}
	if snap.Authenticated || snap.User != nil {
		t.Fatalf("expected unauthenticated snapshot, got %+v", snap)
	}
	if backend.meCallCount() != 0 {
		t.Fatal("expected no verification call for an empty store")
	}
	if got := session.MetricsSnapshot().Counters[MetricRestoreEmpty]; got != 1 {
		t.Fatalf("expected restore_empty=1, got %d", got)
	}
}

func TestRestoreRunsOnlyOnce(t *testing.T) {
	backend := &fakeBackend{}
	store := credstore.NewMemory()
	session := newTestSession(t, backend, store)

	session.Restore(context.Background())

	// A record appearing later must not be picked up by a second call.
	seedStore(t, store, signedToken(t, time.Now().Add(time.Hour)), studentUser)
	snap := session.Restore(context.Background())

	if snap.Authenticated {
		t.Fatal("second restore must not re-resolve")
	}
	if backend.meCallCount() != 0 {
		t.Fatal("second restore must not hit the backend")
	}
}

func TestRestoreExpiredTokenSkipsVerification(t *testing.T) {
	backend := &fakeBackend{}
	store := credstore.NewMemory()
	seedStore(t, store, signedToken(t, time.Now().Add(-time.Hour)), studentUser)
	session := newTestSession(t, backend, store)

	snap := session.Restore(context.Background())

	if snap.Authenticated {
		t.Fatal("expected unauthenticated after local expiry")
	}
	if backend.meCallCount() != 0 {
		t.Fatal("locally expired token must never reach the backend")
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, credstore.ErrNotFound) {
		t.Fatalf("expected cleared store, got %v", err)
	}
	if got := session.MetricsSnapshot().Counters[MetricRestoreExpiredLocal]; got != 1 {
		t.Fatalf("expected restore_expired_local=1, got %d", got)
	}
}

func TestRestoreTokenInsideSkewIsExpired(t *testing.T) {
	backend := &fakeBackend{}
	store := credstore.NewMemory()
	// Expires in 10s; the default 30s skew must treat it as expired.
	seedStore(t, store, signedToken(t, time.Now().Add(10*time.Second)), studentUser)
	session := newTestSession(t, backend, store)

	snap := session.Restore(context.Background())

	if snap.Authenticated {
		t.Fatal("token inside the skew window must not restore")
	}
	if backend.meCallCount() != 0 {
		t.Fatal("expected no verification call")
	}
}

func TestRestoreVerifiedTokenAuthenticates(t *testing.T) {
	backend := &fakeBackend{
		meFn: func(_ context.Context, token string) (*User, error) {
			u := studentUser
			return &u, nil
		},
	}
	store := credstore.NewMemory()
	raw := signedToken(t, time.Now().Add(time.Hour))
	seedStore(t, store, raw, studentUser)
	session := newTestSession(t, backend, store)

	snap := session.Restore(context.Background())

	if !snap.Authenticated || snap.User == nil {
		t.Fatalf("expected authenticated snapshot, got %+v", snap)
	}
	if snap.User.UserID != studentUser.UserID {
		t.Fatalf("expected user %q, got %q", studentUser.UserID, snap.User.UserID)
	}
	if session.Token() != raw {
		t.Fatal("expected bearer token to be the stored one")
	}
	if got := session.MetricsSnapshot().Counters[MetricRestoreSuccess]; got != 1 {
		t.Fatalf("expected restore_success=1, got %d", got)
	}
}

func TestRestoreVerifyFailureClearsCredentials(t *testing.T) {
	backend := &fakeBackend{
		meFn: func(_ context.Context, _ string) (*User, error) {
			return nil, ErrSessionExpired
		},
	}
	store := credstore.NewMemory()
	seedStore(t, store, signedToken(t, time.Now().Add(time.Hour)), studentUser)
	session := newTestSession(t, backend, store)

	snap := session.Restore(context.Background())

	if snap.Authenticated {
		t.Fatal("expected unauthenticated after rejected verification")
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, credstore.ErrNotFound) {
		t.Fatalf("expected cleared store, got %v", err)
	}
	if got := session.MetricsSnapshot().Counters[MetricRestoreVerifyFailed]; got != 1 {
		t.Fatalf("expected restore_verify_failed=1, got %d", got)
	}
}

func TestRestoreUnreachableBackendFailsSafe(t *testing.T) {
	backend := &fakeBackend{
		meFn: func(_ context.Context, _ string) (*User, error) {
			return nil, ErrBackendUnavailable
		},
	}
	store := credstore.NewMemory()
	seedStore(t, store, signedToken(t, time.Now().Add(time.Hour)), studentUser)
	session := newTestSession(t, backend, store)

	snap := session.Restore(context.Background())

	if snap.Loading || snap.Authenticated {
		t.Fatalf("expected settled unauthenticated snapshot, got %+v", snap)
	}
}

func TestRestoreSupersededByLogoutDropsUser(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		meFn: func(_ context.Context, _ string) (*User, error) {
			close(entered)
			<-release
			u := studentUser
			return &u, nil
		},
	}
	store := credstore.NewMemory()
	seedStore(t, store, signedToken(t, time.Now().Add(time.Hour)), studentUser)
	session := newTestSession(t, backend, store)

	done := make(chan Snapshot, 1)
	go func() {
		done <- session.Restore(context.Background())
	}()

	<-entered
	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	close(release)

	snap := <-done
	if snap.Loading {
		t.Fatal("loading must drop even for a superseded restore")
	}
	if snap.Authenticated || snap.User != nil {
		t.Fatal("logout during restore must win over the restored user")
	}
}

/*
====================================
LOGIN
====================================
*/

func TestLoginCommitsStateStoreAndNotifies(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(professorUser, "tok-prof")}
	store := credstore.NewMemory()
	session := newTestSession(t, backend, store)
	session.Restore(context.Background())

	var notified []Snapshot
	cancel := session.Subscribe(func(snap Snapshot) {
		notified = append(notified, snap)
	})
	defer cancel()

	user, err := session.Login(context.Background(), Credentials{UserID: "PROF-042", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Role != RoleProfessor {
		t.Fatalf("expected professor, got %s", user.Role)
	}

	snap := session.Snapshot()
	if !snap.Authenticated || snap.User == nil || snap.User.UserID != "PROF-042" {
		t.Fatalf("expected authenticated professor snapshot, got %+v", snap)
	}
	if session.Token() != "tok-prof" {
		t.Fatal("expected bearer token committed")
	}

	rec, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected persisted record: %v", err)
	}
	if rec.Token != "tok-prof" {
		t.Fatalf("expected stored token tok-prof, got %q", rec.Token)
	}

	if len(notified) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notified))
	}
	if !notified[0].Authenticated {
		t.Fatal("notification must carry the committed state")
	}
}

func TestLoginFailureLeavesSessionUnchanged(t *testing.T) {
	backend := &fakeBackend{
		loginFn: func(_ context.Context, _ Credentials) (*LoginResult, error) {
			return nil, ErrInvalidCredentials
		},
	}
	store := credstore.NewMemory()
	session := newTestSession(t, backend, store)
	session.Restore(context.Background())

	_, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if session.Snapshot().Authenticated {
		t.Fatal("failed login must not authenticate")
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, credstore.ErrNotFound) {
		t.Fatal("failed login must not persist credentials")
	}
}

func TestLoginRejectsEmptyInput(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(studentUser, "tok")}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	_, err := session.Login(context.Background(), Credentials{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	ghost := studentUser
	ghost.Role = Role("ghost")
	backend := &fakeBackend{loginFn: loginAs(ghost, "tok")}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	_, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"})
	if !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("expected ErrRoleInvalid, got %v", err)
	}
	if session.Snapshot().Authenticated {
		t.Fatal("unknown role must not authenticate")
	}
}

func TestLoginSupersededByLogout(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		loginFn: func(_ context.Context, _ Credentials) (*LoginResult, error) {
			close(entered)
			<-release
			u := studentUser
			return &LoginResult{AccessToken: "tok-late", TokenType: "bearer", User: u}, nil
		},
	}
	store := credstore.NewMemory()
	session := newTestSession(t, backend, store)
	session.Restore(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"})
		errCh <- err
	}()

	<-entered
	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	close(release)

	if err := <-errCh; !errors.Is(err, ErrSessionSuperseded) {
		t.Fatalf("expected ErrSessionSuperseded, got %v", err)
	}
	if session.Snapshot().Authenticated {
		t.Fatal("discarded login must not authenticate")
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, credstore.ErrNotFound) {
		t.Fatal("discarded login must not leave a persisted record")
	}
	if got := session.MetricsSnapshot().Counters[MetricLoginSuperseded]; got != 1 {
		t.Fatalf("expected login_superseded=1, got %d", got)
	}
}

func TestConcurrentLoginKeepsCommittedRecord(t *testing.T) {
	// Login B captures the generation, then login A commits fully. B must be
	// discarded without clearing A's persisted record.
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	backend := &fakeBackend{
		loginFn: func(_ context.Context, creds Credentials) (*LoginResult, error) {
			if creds.UserID == "slow" {
				once.Do(func() { close(entered) })
				<-release
				u := studentUser
				return &LoginResult{AccessToken: "tok-slow", TokenType: "bearer", User: u}, nil
			}
			u := professorUser
			return &LoginResult{AccessToken: "tok-fast", TokenType: "bearer", User: u}, nil
		},
	}
	store := credstore.NewMemory()
	session := newTestSession(t, backend, store)
	session.Restore(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := session.Login(context.Background(), Credentials{UserID: "slow", Password: "pw"})
		errCh <- err
	}()

	<-entered
	if _, err := session.Login(context.Background(), Credentials{UserID: "fast", Password: "pw"}); err != nil {
		t.Fatalf("fast login failed: %v", err)
	}
	close(release)

	if err := <-errCh; !errors.Is(err, ErrSessionSuperseded) {
		t.Fatalf("expected ErrSessionSuperseded for the slow login, got %v", err)
	}

	snap := session.Snapshot()
	if !snap.Authenticated || snap.User.UserID != professorUser.UserID {
		t.Fatalf("expected the committed login to survive, got %+v", snap)
	}
	rec, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected the committed record to survive: %v", err)
	}
	if rec.Token != "tok-fast" {
		t.Fatalf("expected tok-fast in the store, got %q", rec.Token)
	}
}

/*
====================================
LOGOUT
====================================
*/

func TestLogoutClearsEverythingAndIsIdempotent(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(studentUser, "tok")}
	store := credstore.NewMemory()
	session := newTestSession(t, backend, store)
	session.Restore(context.Background())

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	snap := session.Snapshot()
	if snap.Authenticated || snap.User != nil || session.Token() != "" {
		t.Fatalf("expected cleared session, got %+v", snap)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, credstore.ErrNotFound) {
		t.Fatal("expected cleared credential store")
	}

	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
	if backend.logoutCallCount() != 1 {
		t.Fatalf("backend logout must run once, ran %d times", backend.logoutCallCount())
	}
}

func TestLogoutLocalCleanupPrecedesBackendCall(t *testing.T) {
	var sawAuthenticated bool
	backend := &fakeBackend{loginFn: loginAs(studentUser, "tok")}
	session := newTestSession(t, backend, nil)
	backend.logoutFn = func(_ context.Context, _ string) error {
		sawAuthenticated = session.Snapshot().Authenticated
		return nil
	}
	session.Restore(context.Background())

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if sawAuthenticated {
		t.Fatal("in-memory state must be cleared before the backend is notified")
	}
}

func TestLogoutBackendFailureIsNotReturned(t *testing.T) {
	backend := &fakeBackend{
		loginFn:  loginAs(studentUser, "tok"),
		logoutFn: func(_ context.Context, _ string) error { return ErrBackendUnavailable },
	}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("backend failure must not surface from Logout, got %v", err)
	}
	if session.Snapshot().Authenticated {
		t.Fatal("session must clear even when the backend call fails")
	}
}

/*
====================================
SUBSCRIPTIONS
====================================
*/

func TestSubscribeReceivesCommittedChangesUntilCancelled(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(studentUser, "tok")}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	var got []bool
	cancel := session.Subscribe(func(snap Snapshot) {
		got = append(got, snap.Authenticated)
	})

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	cancel()
	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("expected [true false] notifications, got %v", got)
	}
}

/*
====================================
REGISTER / PROFILE / PASSWORD
====================================
*/

func TestRegisterDefaultsToStudentAndLeavesSessionAlone(t *testing.T) {
	var gotRole Role
	backend := &fakeBackend{
		registerFn: func(_ context.Context, reg Registration) (*User, error) {
			gotRole = reg.Role
			u := studentUser
			u.UserID = reg.UserID
			return &u, nil
		},
	}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	user, err := session.Register(context.Background(), Registration{
		UserID:   "1AB21CS099",
		Password: "longenough",
		FullName: "New Student",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if gotRole != RoleStudent {
		t.Fatalf("expected role to default to student, got %q", gotRole)
	}
	if user.UserID != "1AB21CS099" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if session.Snapshot().Authenticated {
		t.Fatal("registration must not log the session in")
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, nil)

	_, err := session.Register(context.Background(), Registration{
		UserID:   "1AB21CS099",
		Password: "short",
		FullName: "New Student",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateProfileRequiresAuthentication(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	name := "New Name"
	_, err := session.UpdateProfile(context.Background(), UserUpdate{FullName: &name})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestUpdateProfileCommitsNewUserState(t *testing.T) {
	backend := &fakeBackend{
		loginFn: loginAs(studentUser, "tok"),
		updateFn: func(_ context.Context, token string, id int, update UserUpdate) (*User, error) {
			if token != "tok" {
				t.Errorf("expected bearer tok, got %q", token)
			}
			if id != studentUser.ID {
				t.Errorf("expected id %d, got %d", studentUser.ID, id)
			}
			u := studentUser
			u.FullName = *update.FullName
			return &u, nil
		},
	}
	store := credstore.NewMemory()
	session := newTestSession(t, backend, store)
	session.Restore(context.Background())

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	name := "Asha R. Rao"
	user, err := session.UpdateProfile(context.Background(), UserUpdate{FullName: &name})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if user.FullName != name {
		t.Fatalf("expected updated name, got %q", user.FullName)
	}
	if got := session.Snapshot().User.FullName; got != name {
		t.Fatalf("expected committed in-memory name, got %q", got)
	}

	rec, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected persisted record: %v", err)
	}
	var stored User
	if err := json.Unmarshal(rec.User, &stored); err != nil {
		t.Fatalf("unmarshal stored user: %v", err)
	}
	if stored.FullName != name {
		t.Fatalf("expected persisted snapshot refreshed, got %q", stored.FullName)
	}
}

func TestChangePasswordRequiresAuthentication(t *testing.T) {
	backend := &fakeBackend{}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	err := session.ChangePassword(context.Background(), PasswordChange{
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestChangePasswordDelegatesWithBearer(t *testing.T) {
	var gotToken string
	backend := &fakeBackend{
		loginFn: loginAs(studentUser, "tok"),
		passwordFn: func(_ context.Context, token string, _ PasswordChange) error {
			gotToken = token
			return nil
		},
	}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	err := session.ChangePassword(context.Background(), PasswordChange{
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if gotToken != "tok" {
		t.Fatalf("expected bearer tok, got %q", gotToken)
	}
	if !session.Snapshot().Authenticated {
		t.Fatal("password change must not touch session state")
	}
}

/*
====================================
ROLES AND PERMISSIONS
====================================
*/

func TestHasRoleMatchesAnyOf(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(professorUser, "tok")}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	if session.HasRole(RoleProfessor) {
		t.Fatal("no user yet; HasRole must be false")
	}

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !session.HasRole(RoleProfessor) {
		t.Fatal("expected professor role")
	}
	if !session.HasRole(RoleStudent, RoleProfessor) {
		t.Fatal("any-of must match")
	}
	if session.HasRole(RoleStudent, RoleAdmin) {
		t.Fatal("non-matching roles must not pass")
	}
}

func TestHasPermissionFollowsGrantTable(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(professorUser, "tok")}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !session.HasPermission(permission.MarkAttendance) {
		t.Fatal("professor must hold mark_attendance")
	}
	if session.HasPermission(permission.ManageUsers) {
		t.Fatal("professor must not hold manage_users")
	}
}

func TestAdminWildcardGrantsEverything(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(adminUser, "tok")}
	session := newTestSession(t, backend, nil)
	session.Restore(context.Background())

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	for _, perm := range []string{
		permission.ManageUsers,
		permission.DeleteUsers,
		permission.MarkAttendance,
		"some_future_permission",
	} {
		if !session.HasPermission(perm) {
			t.Fatalf("admin wildcard must grant %q", perm)
		}
	}
}

/*
====================================
AUTHORIZE
====================================
*/

func TestAuthorizeAcrossSessionStates(t *testing.T) {
	backend := &fakeBackend{loginFn: loginAs(studentUser, "tok")}
	session := newTestSession(t, backend, nil)

	if got := session.Authorize(RequireRole(RoleStudent)); got != DecisionLoading {
		t.Fatalf("expected loading decision, got %v", got)
	}

	session.Restore(context.Background())
	if got := session.Authorize(RequireRole(RoleStudent)); got != DecisionRedirectLogin {
		t.Fatalf("expected redirect-login decision, got %v", got)
	}

	if _, err := session.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if got := session.Authorize(RequireRole(RoleStudent)); got != DecisionAllowed {
		t.Fatalf("expected allowed decision, got %v", got)
	}
	if got := session.Authorize(RequireRole(RoleProfessor)); got != DecisionDenied {
		t.Fatalf("expected denied decision, got %v", got)
	}
	if got := session.Authorize(RequirePermission(permission.ViewTimetable)); got != DecisionAllowed {
		t.Fatalf("expected permission allowed, got %v", got)
	}
	if got := session.Authorize(RequirePermission(permission.ManageUsers)); got != DecisionDenied {
		t.Fatalf("expected permission denied, got %v", got)
	}

	counters := session.MetricsSnapshot().Counters
	if counters[MetricGuardDeniedRole] != 1 {
		t.Fatalf("expected one role denial, got %d", counters[MetricGuardDeniedRole])
	}
	if counters[MetricGuardDeniedPermission] != 1 {
		t.Fatalf("expected one permission denial, got %d", counters[MetricGuardDeniedPermission])
	}
}

/*
====================================
PERSISTENCE ROUND TRIP
====================================
*/

func TestSessionSurvivesRestartViaStore(t *testing.T) {
	store := credstore.NewMemory()
	raw := signedToken(t, time.Now().Add(time.Hour))

	first := newTestSession(t, &fakeBackend{loginFn: loginAs(studentUser, raw)}, store)
	first.Restore(context.Background())
	if _, err := first.Login(context.Background(), Credentials{UserID: "x", Password: "y"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Simulated restart: a new session over the same store.
	second := newTestSession(t, &fakeBackend{
		meFn: func(_ context.Context, token string) (*User, error) {
			if token != raw {
				return nil, ErrSessionExpired
			}
			u := studentUser
			return &u, nil
		},
	}, store)

	snap := second.Restore(context.Background())
	if !snap.Authenticated || snap.User == nil || snap.User.UserID != studentUser.UserID {
		t.Fatalf("expected restored session, got %+v", snap)
	}
}
