// Package credstore persists the credential record — bearer token plus user
// snapshot — between runs of the portal client.
//
// Three implementations are provided: Memory (tests, embedders with their
// own persistence), File (single-user desktops, atomic-rename writes), and
// Redis (shared lab workstations). All three guarantee that Save is atomic
// and Clear is idempotent; the session engine depends on both properties.
package credstore
