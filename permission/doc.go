// Package permission holds the static role → permission mapping consumed by
// session authorization checks.
//
// # Design
//
// The mapping is pure data: it is populated during initialization, frozen,
// and never mutated at runtime. The admin role carries a wildcard that
// satisfies every check, so fine-grained tokens only need to be enumerated
// for the non-admin roles.
//
// # Architecture boundaries
//
// This package must not import the root package or any sibling package.
// Roles are plain strings here; the root package owns the closed role enum
// and converts before calling in.
package permission
