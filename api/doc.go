// Package api is the HTTP client for the backend auth endpoints.
//
// The backend is a black box to the kit: this package owns the full wire
// surface (paths, payload shapes, status-code semantics) and translates
// every failure into the root package's sentinel errors, so nothing above it
// ever inspects an HTTP response.
package api
