package classauth

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the backend rejects the
	// user ID / password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired is returned when a stored bearer token is no longer
	// accepted by the backend.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionSuperseded is returned when an in-flight operation resolved
	// after the session generation advanced (for example a logout landed
	// first); the result was discarded.
	ErrSessionSuperseded = errors.New("session superseded")
	// ErrNotAuthenticated is returned by operations that require a logged-in
	// user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrBackendUnavailable wraps transport failures and 5xx responses; the
	// call may be retried.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrForbidden is returned when the backend rejects an operation for the
	// authenticated user's role.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound is returned by user lookup and update operations.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by Register when the user ID is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidInput is returned when local validation or the backend
	// rejects a request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRoleInvalid is returned when a role string is outside the closed
	// role set.
	ErrRoleInvalid = errors.New("invalid role")
	// ErrCredentialStore wraps credential store read/write failures.
	ErrCredentialStore = errors.New("credential store failure")
	// ErrSessionNotReady is returned by Build when required dependencies are
	// missing.
	ErrSessionNotReady = errors.New("session not ready")
)
