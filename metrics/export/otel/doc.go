// Package otel bridges session metrics to OpenTelemetry observable
// instruments. The exporter registers a single collection callback and
// reads a fresh snapshot on every collection cycle.
package otel
