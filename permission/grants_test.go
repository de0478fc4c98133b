package permission

import (
	"reflect"
	"testing"
)

func TestGrantAndAllows(t *testing.T) {
	g := New()
	if err := g.Grant("assistant", ViewTimetable, MarkAttendance); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	g.Freeze()

	if !g.Allows("assistant", ViewTimetable) {
		t.Fatal("expected granted permission to be allowed")
	}
	if g.Allows("assistant", ManageUsers) {
		t.Fatal("ungranted permission must be denied")
	}
	if g.Allows("nobody", ViewTimetable) {
		t.Fatal("unknown role must be denied")
	}
	if g.Allows("assistant", "") {
		t.Fatal("empty permission must be denied")
	}
}

func TestGrantAfterFreezeFails(t *testing.T) {
	g := New()
	g.Freeze()

	if err := g.Grant("student", ViewTimetable); err == nil {
		t.Fatal("expected an error granting after Freeze")
	}
	if !g.Frozen() {
		t.Fatal("expected frozen table")
	}
}

func TestGrantRejectsEmptyNames(t *testing.T) {
	g := New()
	if err := g.Grant("", ViewTimetable); err == nil {
		t.Fatal("expected an error for an empty role")
	}
	if err := g.Grant("student", ""); err == nil {
		t.Fatal("expected an error for an empty permission")
	}
}

func TestWildcardAllowsAnyPermission(t *testing.T) {
	g := New()
	if err := g.Grant("admin", Wildcard); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	g.Freeze()

	for _, perm := range []string{ViewTimetable, DeleteUsers, "anything_at_all"} {
		if !g.Allows("admin", perm) {
			t.Errorf("wildcard must allow %q", perm)
		}
	}
}

func TestNilGrantsAllowsNothing(t *testing.T) {
	var g *Grants
	if g.Allows("admin", ViewTimetable) {
		t.Fatal("nil table must deny")
	}
	if g.Permissions("admin") != nil {
		t.Fatal("nil table has no permissions")
	}
}

func TestPermissionsSorted(t *testing.T) {
	g := New()
	if err := g.Grant("student", ViewTimetable, ViewAttendance, ViewNotifications); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	g.Freeze()

	want := []string{ViewAttendance, ViewNotifications, ViewTimetable}
	if got := g.Permissions("student"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Permissions = %v, want %v", got, want)
	}
	if g.Permissions("unknown") != nil {
		t.Fatal("unknown role has no permissions")
	}
}

func TestDefaultTable(t *testing.T) {
	g := Default()

	if !g.Frozen() {
		t.Fatal("default table must come frozen")
	}

	if got := g.Roles(); !reflect.DeepEqual(got, []string{"admin", "professor", "student"}) {
		t.Fatalf("unexpected roles: %v", got)
	}

	// Students view, professors additionally manage their classes, admins
	// hold the wildcard.
	if !g.Allows("student", ViewAttendance) || g.Allows("student", MarkAttendance) {
		t.Fatal("unexpected student grants")
	}
	if !g.Allows("professor", MarkAttendance) || g.Allows("professor", ManageUsers) {
		t.Fatal("unexpected professor grants")
	}
	if !g.Allows("admin", ManageUsers) || !g.Allows("admin", DeleteUsers) {
		t.Fatal("unexpected admin grants")
	}
}
