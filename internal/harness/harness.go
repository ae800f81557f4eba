package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/sorsync/internal/feed"
	"github.com/roach88/sorsync/internal/ir"
	"github.com/roach88/sorsync/internal/reconcile"
	"github.com/roach88/sorsync/internal/store"
	"github.com/roach88/sorsync/internal/testutil"
)

// epoch is the first timestamp of every scenario store.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// errInjected is returned by writes a run step asked to fail.
var errInjected = errors.New("injected failure")

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and run ids.
type Harness struct {
	store    *store.Store
	scenario *Scenario
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Write seed rows
// 3. Execute runs with expectation checks
// 4. Capture the final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.DriverSQLite, ":memory:",
		store.WithClock(testutil.NewStepClock(epoch, time.Second)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{store: st, scenario: scenario}
	ctx := context.Background()

	if err := h.seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Runs {
		run, err := h.executeRun(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		result.Runs = append(result.Runs, run)
		for _, msg := range checkExpect(i, step.Expect, run) {
			result.AddError(msg)
		}
	}

	state, err := h.finalState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(state, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// seed writes the scenario's seed rows in order.
func (h *Harness) seed(ctx context.Context) error {
	for i, seed := range h.scenario.Seed {
		attrs, err := toObject(seed.Attrs)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		fp, err := ir.Fingerprint(attrs)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		e := ir.Entity{NaturalID: seed.NaturalID, Source: h.scenario.Source, Attrs: attrs, Fingerprint: fp}

		n, err := h.store.WriteInsert(ctx, e)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if n == 0 {
			return fmt.Errorf("seed[%d]: natural id %q seeded twice", i, seed.NaturalID)
		}

		switch ir.Status(seed.Status) {
		case ir.StatusInactive:
			if _, err := h.store.WriteDeactivate(ctx, seed.NaturalID, h.scenario.Source); err != nil {
				return fmt.Errorf("seed[%d]: %w", i, err)
			}
		case ir.StatusDeleted:
			// No write sets deleted; the SoR side does.
			db := h.store.DB()
			_, err := db.ExecContext(ctx, db.Rebind(`
				UPDATE sor_records SET status = ? WHERE natural_id = ? AND source = ?
			`), string(ir.StatusDeleted), seed.NaturalID, h.scenario.Source)
			if err != nil {
				return fmt.Errorf("seed[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// executeRun builds the run's feed and reconciles it. Only fatal run errors
// are captured in the RunResult; anything else is a harness error.
func (h *Harness) executeRun(ctx context.Context, index int, step RunStep) (RunResult, error) {
	f, err := h.buildFeed(step)
	if err != nil {
		return RunResult{}, err
	}

	var storage reconcile.Storage = h.store
	if len(step.FailWrites) > 0 || step.FailSnapshot {
		flaky := testutil.NewFlakyStore(h.store)
		for _, id := range step.FailWrites {
			flaky.FailWrites(id, errInjected)
		}
		if step.FailSnapshot {
			flaky.FailLoad(errInjected)
		}
		storage = flaky
	}

	coord := reconcile.New(storage,
		reconcile.WithIDGenerator(reconcile.NewFixedGenerator(fmt.Sprintf("run-%d", index+1))),
		reconcile.WithNow(func() time.Time { return epoch }),
	)
	report, err := coord.Run(ctx, f)
	if err != nil && !reconcile.IsFatal(err) {
		return RunResult{}, err
	}
	return RunResult{Report: report, Err: err}, nil
}

func (h *Harness) buildFeed(step RunStep) (feed.Feed, error) {
	if step.Feed != "" {
		f, err := feed.Load(step.Feed, feed.DefaultSources())
		if err != nil {
			return feed.Feed{}, err
		}
		f.Source = h.scenario.Source
		return f, nil
	}

	idField := h.scenario.IDField
	if idField == "" {
		idField = feed.DefaultIDField
	}
	records := make([]ir.Object, 0, len(step.Records))
	for i, rec := range step.Records {
		obj, err := toObject(rec)
		if err != nil {
			return feed.Feed{}, fmt.Errorf("records[%d]: %w", i, err)
		}
		records = append(records, obj)
	}
	return feed.Feed{
		Kind:    feed.KindGeneric,
		Source:  h.scenario.Source,
		IDField: idField,
		Records: records,
	}, nil
}

func (h *Harness) finalState(ctx context.Context) (FinalState, error) {
	records, err := h.store.ListRecords(ctx, h.scenario.Source)
	if err != nil {
		return FinalState{}, err
	}
	log, err := h.store.ReadSourceChangeLog(ctx, h.scenario.Source)
	if err != nil {
		return FinalState{}, err
	}
	return FinalState{Records: records, ChangeLog: log}, nil
}

// checkExpect compares a run against its expectation.
func checkExpect(index int, expect *RunExpect, run RunResult) []string {
	if expect == nil {
		return nil
	}

	var errs []string
	if expect.Fatal != run.Fatal() {
		errs = append(errs, fmt.Sprintf("run %d: expected fatal=%v, got fatal=%v (err: %v)",
			index+1, expect.Fatal, run.Fatal(), run.Err))
	}

	actual := counters(run.Report)
	for _, name := range counterNames {
		want, ok := expect.Counts[name]
		if !ok {
			continue
		}
		if actual[name] != want {
			errs = append(errs, fmt.Sprintf("run %d: expected %s=%d, got %d", index+1, name, want, actual[name]))
		}
	}
	return errs
}

// toObject converts YAML-decoded attributes into an ir.Object.
func toObject(m map[string]interface{}) (ir.Object, error) {
	if m == nil {
		return ir.Object{}, nil
	}
	v, err := ir.ToValue(m)
	if err != nil {
		return nil, err
	}
	return v.(ir.Object), nil
}
