// Package token inspects bearer tokens client-side without verifying them.
//
// # What this package must NOT do
//
//   - Verify signatures. The backend owns token validity; a client-side
//     verdict other than "certainly expired" is never trusted.
//   - Gate authorization. Role claims read here are hints for telemetry,
//     never inputs to permission checks.
package token
