package middleware

import (
	"context"
	"net/http"

	classauth "github.com/campusware/classauth"
	"github.com/campusware/classauth/route"
)

type snapshotContextKey struct{}

// SnapshotFromContext returns the session snapshot a Guard stored for the
// admitted request.
func SnapshotFromContext(ctx context.Context) (classauth.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotContextKey{}).(classauth.Snapshot)
	return snap, ok
}

// UserFromContext returns the authenticated user for the admitted request.
func UserFromContext(ctx context.Context) (*classauth.User, bool) {
	snap, ok := SnapshotFromContext(ctx)
	if !ok || snap.User == nil {
		return nil, false
	}
	return snap.User, true
}

// GuardConfig tunes how guard decisions map onto HTTP responses.
type GuardConfig struct {
	// LoginPath receives unauthenticated callers. Defaults to
	// [route.LoginPath].
	LoginPath string
	// Fallback renders the access-denied outcome. Defaults to a plain 403.
	Fallback http.Handler
}

// Guard gates a handler on the session meeting the requirement, mirroring
// the view guard contract: loading yields a retryable 503 (never the
// protected content, never a denial), a missing user yields a redirect to
// the login entry point, an unmet requirement yields the access-denied
// fallback, and an admitted request proceeds with the snapshot attached to
// its context.
func Guard(session *classauth.Session, req classauth.Requirement) func(http.Handler) http.Handler {
	return GuardWith(session, req, GuardConfig{})
}

// GuardWith is Guard with explicit response mapping.
func GuardWith(session *classauth.Session, req classauth.Requirement, cfg GuardConfig) func(http.Handler) http.Handler {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = route.LoginPath
	}
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "access denied", http.StatusForbidden)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			switch session.Authorize(req) {
			case classauth.DecisionLoading:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session restoring", http.StatusServiceUnavailable)
			case classauth.DecisionRedirectLogin:
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
			case classauth.DecisionDenied:
				fallback.ServeHTTP(w, r)
			case classauth.DecisionAllowed:
				ctx := context.WithValue(r.Context(), snapshotContextKey{}, session.Snapshot())
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}
