package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	classauth "github.com/campusware/classauth"
	internalmetrics "github.com/campusware/classauth/internal/metrics"
	"github.com/campusware/classauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() classauth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter bridges session metrics to an OpenTelemetry meter using
// observable instruments. Values are read on collection, not pushed.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	counters     [internalmetrics.MetricIDCount]metric.Int64ObservableCounter
	buckets      [internalmetrics.HistogramIDCount][internalmetrics.HistogramBuckets]metric.Int64ObservableGauge
	counts       [internalmetrics.HistogramIDCount]metric.Int64ObservableCounter
	auditDropped metric.Int64ObservableCounter
}

// New registers observable instruments on the meter that collect from the
// given session. Call Close to unregister.
func New(meter metric.Meter, session *classauth.Session) (*Exporter, error) {
	return NewFromSource(meter, session)
}

// NewFromSource registers observable instruments reading from a custom
// snapshot source.
func NewFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if source == nil {
		return nil, errors.New("otel exporter: nil metrics source")
	}
	e := &Exporter{source: source}

	instruments := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+internalmetrics.HistogramBuckets+2)

	for _, def := range internaldefs.CounterDefs {
		counter, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("register counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = counter
		instruments = append(instruments, counter)
	}

	for _, def := range internaldefs.HistogramDefs {
		for b, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			gauge, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help))
			if err != nil {
				return nil, fmt.Errorf("register gauge %s: %w", name, err)
			}
			e.buckets[def.ID][b] = gauge
			instruments = append(instruments, gauge)
		}

		count, err := meter.Int64ObservableCounter(def.Name+"_count", metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("register counter %s_count: %w", def.Name, err)
		}
		e.counts[def.ID] = count
		instruments = append(instruments, count)
	}

	dropped, err := meter.Int64ObservableCounter(
		"classauth_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("register counter classauth_audit_dropped_total: %w", err)
	}
	e.auditDropped = dropped
	instruments = append(instruments, dropped)

	registration, err := meter.RegisterCallback(e.collect, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration

	return e, nil
}

func (e *Exporter) collect(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, def := range internaldefs.CounterDefs {
		observer.ObserveInt64(e.counters[def.ID], int64(snapshot.Counters[def.ID]))
	}

	for _, def := range internaldefs.HistogramDefs {
		h := snapshot.Histograms[def.ID]
		cumulative := internaldefs.CumulativeBuckets(h.Buckets)
		for b := range e.buckets[def.ID] {
			observer.ObserveInt64(e.buckets[def.ID][b], int64(cumulative[b]))
		}
		observer.ObserveInt64(e.counts[def.ID], int64(h.Count))
	}

	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
