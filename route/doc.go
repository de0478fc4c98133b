// Package route maps an authenticated session to its permitted view subtree
// and default landing path.
//
// The state machine per navigation is Loading → {Unauthenticated,
// AuthenticatedAs(role)}. From AuthenticatedAs(role) every resolution stays
// inside that role's subtree; crossing into another subtree is only possible
// through a redirect computed from the current role, never a stored one.
package route
