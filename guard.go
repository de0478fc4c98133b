package classauth

// Decision is the outcome of one guard evaluation.
type Decision int

const (
	// DecisionLoading means session restore has not resolved yet: render a
	// neutral loading indicator, never the protected content and never a
	// denial.
	DecisionLoading Decision = iota
	// DecisionRedirectLogin means no user is present: send the caller to the
	// login entry point, replacing history.
	DecisionRedirectLogin
	// DecisionDenied means the user is authenticated but does not meet the
	// requirement: render the access-denied fallback.
	DecisionDenied
	// DecisionAllowed admits the protected content.
	DecisionAllowed
)

// String returns the decision name for logs and tests.
func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect-login"
	case DecisionDenied:
		return "denied"
	case DecisionAllowed:
		return "allowed"
	}
	return "unknown"
}

// Requirement is what a protected view demands of the session. Zero value
// requires authentication only. When both Roles and Permission are set, both
// must be satisfied.
type Requirement struct {
	// Roles admits a user whose role is any member of the set.
	Roles []Role
	// Permission admits a user whose role grants the token (or the wildcard).
	Permission string
}

// RequireRole builds a requirement admitting any of the given roles.
func RequireRole(roles ...Role) Requirement {
	return Requirement{Roles: roles}
}

// RequirePermission builds a requirement admitting holders of the token.
func RequirePermission(perm string) Requirement {
	return Requirement{Permission: perm}
}

// Evaluate gates a protected view. It is a pure function of the snapshot and
// the requirement; it holds no state and is evaluated per render.
func Evaluate(snap Snapshot, req Requirement) Decision {
	if snap.Loading {
		return DecisionLoading
	}
	if snap.User == nil {
		return DecisionRedirectLogin
	}
	if len(req.Roles) > 0 && !roleIn(snap.User.Role, req.Roles) {
		return DecisionDenied
	}
	if req.Permission != "" && !snap.Permissions.Allows(string(snap.User.Role), req.Permission) {
		return DecisionDenied
	}
	return DecisionAllowed
}

func roleIn(role Role, set []Role) bool {
	for _, candidate := range set {
		if role == candidate {
			return true
		}
	}
	return false
}
