package classauth

import (
	internalmetrics "github.com/campusware/classauth/internal/metrics"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

// Counter identifiers re-exported for embedders and exporters.
const (
	// MetricRestoreSuccess counts restores that resolved to an authenticated session.
	MetricRestoreSuccess = internalmetrics.MetricRestoreSuccess
	// MetricRestoreEmpty counts restores with no persisted credential record.
	MetricRestoreEmpty = internalmetrics.MetricRestoreEmpty
	// MetricRestoreExpiredLocal counts restores short-circuited by the local expiry pre-check.
	MetricRestoreExpiredLocal = internalmetrics.MetricRestoreExpiredLocal
	// MetricRestoreVerifyFailed counts restores whose backend verification failed.
	MetricRestoreVerifyFailed = internalmetrics.MetricRestoreVerifyFailed
	// MetricLoginSuccess counts committed logins.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginSuperseded counts login results discarded by the stale-generation guard.
	MetricLoginSuperseded = internalmetrics.MetricLoginSuperseded
	// MetricLogout counts logouts.
	MetricLogout = internalmetrics.MetricLogout
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess = internalmetrics.MetricRegisterSuccess
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure = internalmetrics.MetricRegisterFailure
	// MetricProfileUpdateSuccess counts committed profile updates.
	MetricProfileUpdateSuccess = internalmetrics.MetricProfileUpdateSuccess
	// MetricProfileUpdateFailure counts rejected profile updates.
	MetricProfileUpdateFailure = internalmetrics.MetricProfileUpdateFailure
	// MetricPasswordChange counts successful password changes.
	MetricPasswordChange = internalmetrics.MetricPasswordChange
	// MetricGuardAllowed counts guard evaluations that admitted the view.
	MetricGuardAllowed = internalmetrics.MetricGuardAllowed
	// MetricGuardLoading counts guard evaluations during the restore phase.
	MetricGuardLoading = internalmetrics.MetricGuardLoading
	// MetricGuardRedirectLogin counts guard evaluations with no user present.
	MetricGuardRedirectLogin = internalmetrics.MetricGuardRedirectLogin
	// MetricGuardDeniedRole counts role denials.
	MetricGuardDeniedRole = internalmetrics.MetricGuardDeniedRole
	// MetricGuardDeniedPermission counts permission denials.
	MetricGuardDeniedPermission = internalmetrics.MetricGuardDeniedPermission
	// MetricRouteRedirect counts router resolutions that redirected.
	MetricRouteRedirect = internalmetrics.MetricRouteRedirect
)

// HistogramVerifyLatency tracks the restore verification round-trip.
const HistogramVerifyLatency = internalmetrics.HistogramVerifyLatency

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a Metrics instance configured by the given
// MetricsConfig. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.Enabled,
	})
}
