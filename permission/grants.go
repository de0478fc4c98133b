package permission

import (
	"errors"
	"sort"
	"sync"
)

// Wildcard satisfies every permission check. It is granted to the admin role
// by default and to nothing else.
const Wildcard = "*"

// Permission tokens used by the classroom portal. Applications embedding the
// kit may register additional tokens before freezing.
const (
	ViewTimetable       = "view_timetable"
	ViewAttendance      = "view_attendance"
	ViewNotifications   = "view_notifications"
	ViewAnalytics       = "view_analytics"
	MarkAttendance      = "mark_attendance"
	EditTimetable       = "edit_timetable"
	CreateNotifications = "create_notifications"
	ViewReports         = "view_reports"
	ManageUsers         = "manage_users"
	DeleteUsers         = "delete_users"
)

// Grants maps role names to permission tokens. It is mutable until Freeze and
// read-only afterwards; authorization checks never mutate it.
type Grants struct {
	mu     sync.RWMutex
	byRole map[string]map[string]struct{}
	frozen bool
}

// New creates an empty Grants table.
func New() *Grants {
	return &Grants{
		byRole: make(map[string]map[string]struct{}),
	}
}

// Grant assigns permission tokens to a role. Must be called before Freeze.
func (g *Grants) Grant(role string, perms ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return errors.New("grants frozen")
	}
	if role == "" {
		return errors.New("role name cannot be empty")
	}

	set, ok := g.byRole[role]
	if !ok {
		set = make(map[string]struct{})
		g.byRole[role] = set
	}
	for _, perm := range perms {
		if perm == "" {
			return errors.New("permission name cannot be empty")
		}
		set[perm] = struct{}{}
	}
	return nil
}

// Freeze prevents further grants. Must be called before the table is used
// for authorization checks.
func (g *Grants) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frozen = true
}

// Frozen reports whether the table has been frozen.
func (g *Grants) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// Allows reports whether the role holds the permission, either directly or
// via the wildcard. A nil Grants allows nothing.
func (g *Grants) Allows(role, perm string) bool {
	if g == nil || perm == "" {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	set, ok := g.byRole[role]
	if !ok {
		return false
	}
	if _, ok := set[Wildcard]; ok {
		return true
	}
	_, ok = set[perm]
	return ok
}

// Permissions returns the role's permission tokens in sorted order.
func (g *Grants) Permissions(role string) []string {
	if g == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	set, ok := g.byRole[role]
	if !ok {
		return nil
	}
	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms
}

// Roles returns every role with at least one grant, in sorted order.
func (g *Grants) Roles() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roles := make([]string, 0, len(g.byRole))
	for role := range g.byRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Default returns the frozen grant table of the classroom portal: students
// and professors hold enumerated tokens, admins hold the wildcard.
func Default() *Grants {
	g := New()
	_ = g.Grant("student", ViewTimetable, ViewAttendance, ViewNotifications)
	_ = g.Grant("professor",
		ViewTimetable, ViewAttendance, ViewNotifications,
		MarkAttendance, EditTimetable, ViewAnalytics, CreateNotifications,
	)
	_ = g.Grant("admin", Wildcard)
	g.Freeze()
	return g
}
