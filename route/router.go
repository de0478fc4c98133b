package route

import (
	"strings"

	classauth "github.com/campusware/classauth"
)

// LoginPath is the unauthenticated entry point every guarded path falls
// back to.
const LoginPath = "/login"

// Kind classifies a resolution.
type Kind int

const (
	// KindLoading means session restore has not resolved; render the neutral
	// loading indicator and evaluate nothing else (avoids redirect flicker
	// during restore).
	KindLoading Kind = iota
	// KindLogin sends the caller to the login entry point.
	KindLogin
	// KindRender admits the requested path.
	KindRender
	// KindRedirect sends the caller to Resolution.Path.
	KindRedirect
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindLogin:
		return "login"
	case KindRender:
		return "render"
	case KindRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Resolution is the router's verdict for one navigation.
type Resolution struct {
	Kind Kind
	// Path is the render target for KindRender, the redirect target for
	// KindRedirect and KindLogin.
	Path string
	// Replace indicates the redirect must replace the history entry so
	// back-navigation cannot return to the unresolved path.
	Replace bool
}

// Table maps authenticated roles to their default landing paths and
// permitted subtrees. Built once; read-only afterwards.
type Table struct {
	defaults map[classauth.Role]string
	subtrees map[classauth.Role]map[string]struct{}
	metrics  *classauth.Metrics
}

// genericDefault is the landing path used when the role has no table entry.
// Unreachable with the closed role enum; kept so a future role addition
// degrades to a sensible page instead of a redirect loop.
const genericDefault = "/dashboard"

// Default returns the classroom portal's route table.
func Default() *Table {
	student := []string{"dashboard", "timetable", "attendance", "notifications"}
	professor := append([]string{"analytics"}, student...)
	admin := append([]string{"analytics", "users", "attendance/reports"}, student...)

	return &Table{
		defaults: map[classauth.Role]string{
			classauth.RoleStudent:   "/student/dashboard",
			classauth.RoleProfessor: "/professor/dashboard",
			classauth.RoleAdmin:     "/admin/dashboard",
		},
		subtrees: map[classauth.Role]map[string]struct{}{
			classauth.RoleStudent:   subtree(student),
			classauth.RoleProfessor: subtree(professor),
			classauth.RoleAdmin:     subtree(admin),
		},
	}
}

// WithMetrics records redirect resolutions into the given counter set.
func (t *Table) WithMetrics(m *classauth.Metrics) *Table {
	t.metrics = m
	return t
}

func subtree(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// DefaultPath returns the role's landing path.
func (t *Table) DefaultPath(role classauth.Role) string {
	if p, ok := t.defaults[role]; ok {
		return p
	}
	return genericDefault
}

// Resolve computes the navigation outcome for the requested path. It is a
// pure function of the snapshot and the path; crossing into another role's
// subtree always resolves to the current role's own default, never into the
// foreign subtree.
func (t *Table) Resolve(snap classauth.Snapshot, path string) Resolution {
	if snap.Loading {
		return Resolution{Kind: KindLoading}
	}
	if snap.User == nil {
		return Resolution{Kind: KindLogin, Path: LoginPath, Replace: true}
	}

	role := snap.User.Role
	own := t.DefaultPath(role)
	path = normalize(path)

	if path == "/profile" {
		return Resolution{Kind: KindRender, Path: path}
	}
	if path == "/" || path == "/dashboard" {
		return t.redirect(own)
	}

	head, rest := split(path)
	if prefixRole, err := classauth.ParseRole(head); err == nil {
		if prefixRole != role {
			return t.redirect(own)
		}
		if _, ok := t.subtrees[role][rest]; ok {
			return Resolution{Kind: KindRender, Path: path}
		}
		return t.redirect(own)
	}

	// Legacy top-level paths: rewrite with the current role, never a stored
	// one.
	switch head {
	case "timetable", "attendance", "notifications":
		if rest == "" {
			return t.redirect("/" + string(role) + "/" + head)
		}
	case "analytics":
		if rest == "" {
			if role == classauth.RoleProfessor || role == classauth.RoleAdmin {
				return t.redirect("/" + string(role) + "/analytics")
			}
			return t.redirect(own)
		}
	}

	return t.redirect(own)
}

func (t *Table) redirect(target string) Resolution {
	if t.metrics != nil {
		t.metrics.Inc(classauth.MetricRouteRedirect)
	}
	return Resolution{Kind: KindRedirect, Path: target, Replace: true}
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// split separates the first path segment from the remainder: "/admin/users"
// yields ("admin", "users").
func split(path string) (head, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], trimmed[i+1:]
	}
	return trimmed, ""
}
