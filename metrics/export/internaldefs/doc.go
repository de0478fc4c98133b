// Package internaldefs holds the shared metric naming tables used by the
// Prometheus and OpenTelemetry exporters. It is internal to the exporters;
// applications should not import it.
package internaldefs
