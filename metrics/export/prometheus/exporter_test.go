package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	classauth "github.com/campusware/classauth"
)

type fakeSource struct {
	snapshot classauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() classauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func enabledSnapshot() classauth.MetricsSnapshot {
	var snap classauth.MetricsSnapshot
	snap.Enabled = true
	return snap
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewFromSource(fakeSource{})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	snap := enabledSnapshot()
	snap.Counters[classauth.MetricLoginSuccess] = 7
	snap.Histograms[classauth.HistogramVerifyLatency].Buckets = [8]uint64{1, 2, 3, 4, 5, 6, 7, 8}
	snap.Histograms[classauth.HistogramVerifyLatency].Count = 36

	exp := NewFromSource(fakeSource{snapshot: snap, dropped: 2})

	out := exp.Render()
	if !strings.Contains(out, "classauth_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "classauth_verify_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "classauth_verify_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "classauth_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestRenderIncludesDroppedEvenWhenDisabled(t *testing.T) {
	exp := NewFromSource(fakeSource{dropped: 4})

	out := exp.Render()
	if !strings.Contains(out, "classauth_audit_dropped_total 4") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	snap := enabledSnapshot()
	snap.Counters[classauth.MetricLoginSuccess] = 1
	exp := NewFromSource(fakeSource{snapshot: snap})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	snap := enabledSnapshot()
	snap.Counters[classauth.MetricLoginSuccess] = 1000
	snap.Counters[classauth.MetricLoginFailure] = 40
	snap.Counters[classauth.MetricRestoreSuccess] = 800
	snap.Counters[classauth.MetricLogout] = 20
	snap.Histograms[classauth.HistogramVerifyLatency].Buckets = [8]uint64{10, 20, 30, 40, 50, 60, 70, 80}
	snap.Histograms[classauth.HistogramVerifyLatency].Count = 360

	exp := NewFromSource(fakeSource{snapshot: snap})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
