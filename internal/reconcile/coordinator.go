package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/ir"
	"github.com/roach88/sorsync/internal/normalize"
)

// Coordinator drives reconciliation runs end to end:
//
//	Idle -> LoadingSnapshot -> Normalizing -> Classifying -> Writing
//	     -> Draining -> Reporting -> Done
//
// A failed snapshot load (or a feed that cannot be normalized) moves the run
// to Failed before any write is submitted. Writes for feed entities are
// submitted while classifying; the Writing phase submits the deactivation
// sweep; Draining waits for every write before counts are reported.
//
// Each Run is independent and recomputes everything from scratch. A
// Coordinator may be reused for sequential runs.
type Coordinator struct {
	store   Storage
	ids     IDGenerator
	metrics *Metrics
	breaker BreakerSettings
	observe func(State)
	now     func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithIDGenerator sets the run id generator.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Coordinator) {
		c.ids = g
	}
}

// WithMetrics records run results on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithBreaker sets the writer's circuit breaker settings.
//
// Default: DefaultBreakerSettings()
func WithBreaker(s BreakerSettings) Option {
	return func(c *Coordinator) {
		c.breaker = s
	}
}

// WithStateObserver calls fn on every state a run enters, from the
// goroutine calling Run.
func WithStateObserver(fn func(State)) Option {
	return func(c *Coordinator) {
		c.observe = fn
	}
}

// WithNow sets the wall clock used for durations and metrics.
func WithNow(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a Coordinator over s.
func New(s Storage, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   s,
		ids:     UUIDv7Generator{},
		breaker: DefaultBreakerSettings(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reconciles the mirror of f.Source against f.
//
// A fatal error returns a zero Report and a *RunError for which IsFatal is
// true; nothing has been written. Per-entity failures do not surface as an
// error: they are logged and counted in Report.Failed.
func (c *Coordinator) Run(ctx context.Context, f feed.Feed) (Report, error) {
	start := c.now()
	runID := c.ids.Generate()
	sm := &stateMachine{runID: runID, source: f.Source, observe: c.observe}

	slog.Info("run starting",
		"run_id", runID,
		"source", f.Source,
		"kind", string(f.Kind),
		"feed_timestamp", f.Timestamp,
	)

	sm.enter(StateLoadingSnapshot)
	if f.Source == "" {
		sm.enter(StateFailed)
		return Report{}, NewSnapshotError(f.Source, fmt.Errorf("feed has no source"))
	}
	snap, err := LoadSnapshot(ctx, c.store, f.Source)
	if err != nil {
		sm.enter(StateFailed)
		slog.Error("snapshot load failed, aborting run",
			"run_id", runID,
			"source", f.Source,
			"error", err,
		)
		return Report{}, err
	}
	c.metrics.observeSnapshot(f.Source, snap.Len())
	slog.Info("active rows loaded",
		"run_id", runID,
		"source", f.Source,
		"count", snap.Len(),
	)

	sm.enter(StateNormalizing)
	norm, err := normalize.Normalize(f)
	if err != nil {
		sm.enter(StateFailed)
		return Report{}, &RunError{Code: ErrCodeNormalize, Source: f.Source, Err: err}
	}

	cnt := &counters{runID: runID, source: f.Source}
	entities := c.fingerprintAll(runID, norm, cnt)
	slog.Info("entities loaded from feed",
		"run_id", runID,
		"source", f.Source,
		"count", len(norm.Entities),
		"dropped", norm.Dropped,
		"duplicates", norm.Duplicates,
	)

	w := NewWriter(c.store, c.breaker, cnt.add)
	submit := func(t Task) {
		if err := w.Submit(ctx, t); err != nil {
			cnt.addFailed()
			slog.Error("write not submitted",
				"run_id", runID,
				"source", t.Source,
				"natural_id", t.NaturalID,
				"outcome", t.Outcome.String(),
				"error", err,
			)
		}
	}

	sm.enter(StateClassifying)
	for _, id := range norm.Order {
		e, ok := entities[id]
		if !ok {
			continue
		}
		outcome := Classify(id, e, snap)
		if outcome == Unchanged {
			cnt.addUnchanged()
			continue
		}
		submit(Task{Outcome: outcome, NaturalID: id, Source: f.Source, Entity: e})
	}

	sm.enter(StateWriting)
	// Membership is tested against every feed id, including entities that
	// failed to fingerprint: they are present, just unwritable this run.
	for _, id := range Absent(snap, norm.Entities) {
		submit(Task{Outcome: Deactivate, NaturalID: id, Source: f.Source})
	}

	sm.enter(StateDraining)
	w.Wait()

	sm.enter(StateReporting)
	report := cnt.snapshot()
	report.RunID = runID
	report.Source = f.Source
	report.FeedTimestamp = f.Timestamp
	report.Seen = len(norm.Entities)
	report.Dropped = norm.Dropped
	report.Duplicates = norm.Duplicates
	finished := c.now()
	report.Duration = finished.Sub(start)
	c.metrics.observeReport(report, finished)

	slog.Info("run done",
		"run_id", runID,
		"source", f.Source,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"reactivated", report.Reactivated,
		"removed", report.Removed,
		"unchanged", report.Unchanged,
		"failed", report.Failed,
	)
	sm.enter(StateDone)
	return report, nil
}

// fingerprintAll attaches fingerprints. An entity that cannot be
// fingerprinted is logged, counted as failed and left out of the result.
func (c *Coordinator) fingerprintAll(runID string, norm normalize.Result, cnt *counters) map[string]ir.Entity {
	out := make(map[string]ir.Entity, len(norm.Entities))
	for id, e := range norm.Entities {
		fp, err := ir.Fingerprint(e.Attrs)
		if err != nil {
			cnt.addFailed()
			slog.Error("fingerprint failed",
				"run_id", runID,
				"source", e.Source,
				"natural_id", id,
				"error", &RunError{Code: ErrCodeFingerprint, Source: e.Source, NaturalID: id, Err: err},
			)
			continue
		}
		e.Fingerprint = fp
		out[id] = e
	}
	return out
}
