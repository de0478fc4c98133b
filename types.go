package classauth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusware/classauth/permission"
)

// Role is the closed set of roles known to the classroom portal. Parsing
// rejects anything outside the set so an unknown role can never flow through
// authorization checks silently.
type Role string

const (
	// RoleStudent identifies a student account.
	RoleStudent Role = "student"
	// RoleProfessor identifies a professor account.
	RoleProfessor Role = "professor"
	// RoleAdmin identifies an administrator account. Admins implicitly hold
	// the permission wildcard.
	RoleAdmin Role = "admin"
)

// AllRoles lists every valid role, in display order.
var AllRoles = []Role{RoleStudent, RoleProfessor, RoleAdmin}

// ParseRole validates a raw role string against the closed role set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return Role(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrRoleInvalid, raw)
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// UnmarshalJSON enforces the closed role set on every decode path, including
// backend responses and persisted credential snapshots.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is the account record returned by the backend and cached in the
// credential store between reloads.
type User struct {
	ID       int    `json:"id"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Credentials is the login input. UserID is the USN for students, the
// employee ID for professors, and the admin ID for administrators.
type Credentials struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration is the account-creation input. Role defaults to
// [RoleStudent] when empty.
type Registration struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     Role   `json:"role" validate:"omitempty,role"`
}

// UserUpdate carries the mutable profile fields. Nil fields are left
// untouched by the backend.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName *string `json:"full_name,omitempty"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,role"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// PasswordChange is the input for the change-password operation.
type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

/// LoginResult is the backend's login response: a bearer token plus the
// authenticated user record.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// RoleInfo is one entry of the backend's role listing.
type RoleInfo struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Snapshot is an immutable view of the session state at one generation.
//
/// Invariants: Authenticated implies User is non-nil; Loading is true only
// before the first Restore resolution and never again afterwards.
type Snapshot struct {
	User          *User
	Authenticated bool
	Loading       bool
	Generation    uint64

	// Permissions is the frozen grant table active for this session. Shared
	// by reference; it is immutable after build.
	Permissions *permission.Grants
}

// Backend is the subset of the auth backend the session engine depends on.
// [github.com/campusware/classauth/api.Client] satisfies it; tests substitute
// an in-memory fake.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, reg Registration) (*User, error)
	Me(ctx context.Context, token string) (*User, error)
	UpdateUser(ctx context.Context, token string, id int, update UserUpdate) (*User, error)
	ChangePassword(ctx context.Context, token string, change PasswordChange) error
	Logout(ctx context.Context, token string) error
}
