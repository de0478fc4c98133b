// Package middleware adapts guard decisions to net/http for server-rendered
// portal frontends.
package middleware
