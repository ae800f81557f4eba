package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports run results. A nil *Metrics is valid and records nothing.
type Metrics struct {
	outcomes    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	snapshot    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// NewMetrics creates the run metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sorsync",
				Subsystem: "reconcile",
				Name:      "outcomes_total",
				Help:      "Rows affected per outcome, plus unchanged and no-op outcomes.",
			},
			[]string{"source", "outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sorsync",
				Subsystem: "reconcile",
				Name:      "failures_total",
				Help:      "Entities whose fingerprint or write failed.",
			},
			[]string{"source"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sorsync",
				Subsystem: "reconcile",
				Name:      "dropped_records_total",
				Help:      "Feed records dropped for an invalid natural id.",
			},
			[]string{"source"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sorsync",
				Subsystem: "reconcile",
				Name:      "run_duration_seconds",
				Help:      "Duration of completed runs in seconds.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"source"},
		),
		snapshot: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sorsync",
				Subsystem: "reconcile",
				Name:      "snapshot_active_rows",
				Help:      "Active rows in the snapshot of the last run.",
			},
			[]string{"source"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sorsync",
				Subsystem: "reconcile",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last completed run.",
			},
			[]string{"source"},
		),
	}

	for _, c := range []prometheus.Collector{m.outcomes, m.failures, m.dropped, m.duration, m.snapshot, m.lastSuccess} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeSnapshot(source string, size int) {
	if m == nil {
		return
	}
	m.snapshot.WithLabelValues(source).Set(float64(size))
}

func (m *Metrics) observeReport(r Report, finished time.Time) {
	if m == nil {
		return
	}
	outcomes := []struct {
		label string
		n     int
	}{
		{Insert.String(), r.Inserted},
		{Update.String(), r.Updated},
		{Reactivate.String(), r.Reactivated},
		{Deactivate.String(), r.Removed},
		{Unchanged.String(), r.Unchanged},
		{NoOpPresentButKnown.String(), r.Known},
		{"missed", r.Missed},
	}
	for _, o := range outcomes {
		m.outcomes.WithLabelValues(r.Source, o.label).Add(float64(o.n))
	}
	m.failures.WithLabelValues(r.Source).Add(float64(r.Failed))
	m.dropped.WithLabelValues(r.Source).Add(float64(r.Dropped))
	m.duration.WithLabelValues(r.Source).Observe(r.Duration.Seconds())
	m.lastSuccess.WithLabelValues(r.Source).Set(float64(finished.Unix()))
}
