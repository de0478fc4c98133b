package internaldefs

import (
	classauth "github.com/campusware/classauth"
	internalmetrics "github.com/campusware/classauth/internal/metrics"
)

// CounterDef binds a counter ID to its exported name and help text.
type CounterDef struct {
	ID   classauth.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram ID to its exported name and help text.
type HistogramDef struct {
	ID   classauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter, in stable render order.
var CounterDefs = []CounterDef{
	{ID: classauth.MetricRestoreSuccess, Name: "classauth_restore_success_total", Help: "Session restores that resolved authenticated."},
	{ID: classauth.MetricRestoreEmpty, Name: "classauth_restore_empty_total", Help: "Session restores with no persisted credential record."},
	{ID: classauth.MetricRestoreExpiredLocal, Name: "classauth_restore_expired_local_total", Help: "Session restores short-circuited by the local expiry pre-check."},
	{ID: classauth.MetricRestoreVerifyFailed, Name: "classauth_restore_verify_failed_total", Help: "Session restores whose backend verification failed."},
	{ID: classauth.MetricLoginSuccess, Name: "classauth_login_success_total", Help: "Committed logins."},
	{ID: classauth.MetricLoginFailure, Name: "classauth_login_failure_total", Help: "Rejected logins."},
	{ID: classauth.MetricLoginSuperseded, Name: "classauth_login_superseded_total", Help: "Login results discarded by the stale-generation guard."},
	{ID: classauth.MetricLogout, Name: "classauth_logout_total", Help: "Logout operations."},
	{ID: classauth.MetricRegisterSuccess, Name: "classauth_register_success_total", Help: "Successful registrations."},
	{ID: classauth.MetricRegisterFailure, Name: "classauth_register_failure_total", Help: "Rejected registrations."},
	{ID: classauth.MetricProfileUpdateSuccess, Name: "classauth_profile_update_success_total", Help: "Committed profile updates."},
	{ID: classauth.MetricProfileUpdateFailure, Name: "classauth_profile_update_failure_total", Help: "Rejected profile updates."},
	{ID: classauth.MetricPasswordChange, Name: "classauth_password_change_total", Help: "Successful password changes."},
	{ID: classauth.MetricGuardAllowed, Name: "classauth_guard_allowed_total", Help: "Guard evaluations that admitted the view."},
	{ID: classauth.MetricGuardLoading, Name: "classauth_guard_loading_total", Help: "Guard evaluations during the restore phase."},
	{ID: classauth.MetricGuardRedirectLogin, Name: "classauth_guard_redirect_login_total", Help: "Guard evaluations with no user present."},
	{ID: classauth.MetricGuardDeniedRole, Name: "classauth_guard_denied_role_total", Help: "Guard denials on role mismatch."},
	{ID: classauth.MetricGuardDeniedPermission, Name: "classauth_guard_denied_permission_total", Help: "Guard denials on missing permission."},
	{ID: classauth.MetricRouteRedirect, Name: "classauth_route_redirect_total", Help: "Router resolutions that redirected."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: classauth.HistogramVerifyLatency, Name: "classauth_verify_latency_seconds", Help: "Restore verification round-trip latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, Prometheus "le"
// label format.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"1",
	"+Inf",
}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"1",
	"inf",
}

// CumulativeBuckets folds per-bucket counts into Prometheus-style cumulative
// buckets.
func CumulativeBuckets(raw [internalmetrics.HistogramBuckets]uint64) [internalmetrics.HistogramBuckets]uint64 {
	var out [internalmetrics.HistogramBuckets]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
