// Package classauth is the client-side authentication and role-authorization
// kit of the classroom portal. It owns the session lifecycle (restore, login,
// logout, register, profile update), the role and permission queries backing
// every guarded view, and the audit/metrics plumbing around them.
//
// The kit is a presentation-layer component: the REST backend remains the
// sole authority on credentials and tokens. What lives here is the state
// machine between "loading", "unauthenticated", and "authenticated as role"
// — and the guarantees the UI layers depend on:
//
//   - Restore always resolves to a definite state; the loading flag can
//     never hang on a failed or slow verification.
//   - Login commits atomically: credential record first, then state, then
//     subscriber notification — or nothing at all.
//   - A logout advances the session generation, so a stale login response
//     resolving later is discarded instead of resurrecting the session.
//   - Authorization denial is a rendering outcome (guard decision), never an
//     error channel.
//
// Subpackages: api (backend HTTP client), credstore (persisted credential
// record), permission (static role grants), route (role router), middleware
// (HTTP guard), token (local bearer-token inspection), metrics/export
// (Prometheus and OTel exporters).
//
// Construction follows the builder pattern:
//
//	backend, err := api.New(api.Config{BaseURL: "https://portal.example.edu/api"})
//	if err != nil { ... }
//	session, err := classauth.New().
//		WithBackend(backend).
//		WithCredentialStore(credstore.NewFile(path)).
//		Build()
package classauth
