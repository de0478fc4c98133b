package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter or histogram slot.
type MetricID int

// Counter identifiers. Keep in sync with metrics/export/internaldefs.
const (
	MetricRestoreSuccess MetricID = iota
	MetricRestoreEmpty
	MetricRestoreExpiredLocal
	MetricRestoreVerifyFailed
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginSuperseded
	MetricLogout
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricProfileUpdateSuccess
	MetricProfileUpdateFailure
	MetricPasswordChange
	MetricGuardAllowed
	MetricGuardLoading
	MetricGuardRedirectLogin
	MetricGuardDeniedRole
	MetricGuardDeniedPermission
	MetricRouteRedirect
	MetricIDCount
)

// Histogram identifiers.
const (
	HistogramVerifyLatency MetricID = iota
	HistogramIDCount
)

// HistogramBuckets is the number of fixed latency buckets per histogram.
const HistogramBuckets = 8

// BucketBounds are the inclusive upper bounds of the latency buckets in
// milliseconds; the last bucket is +Inf.
var BucketBounds = [HistogramBuckets - 1]int64{5, 10, 25, 50, 100, 250, 1000}

// Config controls metric collection. When Enabled is false every operation
// is a no-op.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// slot is a cache-line-padded counter so adjacent metrics do not false-share.
type slot struct {
	value atomic.Uint64
	_     [56]byte
}

type histogram struct {
	buckets [HistogramBuckets]slot
	count   slot
}

// Metrics holds lock-free counters and optional latency histograms.
// A nil *Metrics is valid and inert.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]slot
	histograms    [HistogramIDCount]histogram
}

// New creates a Metrics instance per the config.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Get reads a single counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id < 0 || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// Observe records a latency sample into the histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id < 0 || id >= HistogramIDCount {
		return
	}
	ms := d.Milliseconds()
	bucket := HistogramBuckets - 1
	for i, bound := range BucketBounds {
		if ms <= bound {
			bucket = i
			break
		}
	}
	h := &m.histograms[id]
	h.buckets[bucket].value.Add(1)
	h.count.value.Add(1)
}

// HistogramSnapshot is a point-in-time copy of one histogram.
type HistogramSnapshot struct {
	Buckets [HistogramBuckets]uint64
	Count   uint64
}

// Snapshot is a point-in-time deep copy of all metrics. Enabled is false
// when collection was off; exporters render nothing for disabled snapshots.
type Snapshot struct {
	Enabled    bool
	Counters   [MetricIDCount]uint64
	Histograms [HistogramIDCount]HistogramSnapshot
}

// Snapshot copies every counter and histogram. Safe to call concurrently
// with writers; individual slots are read atomically.
func (m *Metrics) Snapshot() Snapshot {
	var snap Snapshot
	if m == nil || !m.enabled {
		return snap
	}
	snap.Enabled = true
	for i := range snap.Counters {
		snap.Counters[i] = m.counters[i].value.Load()
	}
	if m.enableLatency {
		for i := range snap.Histograms {
			h := &m.histograms[i]
			for b := range snap.Histograms[i].Buckets {
				snap.Histograms[i].Buckets[b] = h.buckets[b].value.Load()
			}
			snap.Histograms[i].Count = h.count.value.Load()
		}
	}
	return snap
}
