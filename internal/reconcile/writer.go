package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/sorsync/internal/ir"
	"github.com/roach88/sorsync/internal/store"
)

// MaxConcurrentWrites caps in-flight storage operations across a whole run,
// regardless of entity kind. It bounds concurrent connections and
// transactions; it is not configurable.
const MaxConcurrentWrites = 5

// Task is one write submitted to the Writer.
type Task struct {
	Outcome   Outcome
	NaturalID string
	Source    string

	// Entity is the fingerprinted entity to store. Unused for Deactivate.
	Entity ir.Entity
}

// Result reports how a task was applied.
type Result struct {
	Task Task

	// Outcome is the resolved outcome. An Insert task resolves to Insert,
	// Reactivate or NoOpPresentButKnown after the point lookup.
	Outcome Outcome

	// Affected is the number of rows the write changed. 0 means the write
	// matched nothing and must not be counted.
	Affected int64

	// Err is a *RunError with code WRITE_FAILED, or nil.
	Err error
}

// BreakerSettings configures the circuit breaker around storage calls.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive storage calls failing
	// with a backend-health error (see store.IsUnavailable) that opens the
	// breaker. Per-entity errors never count. 0 disables tripping.
	FailureThreshold uint32

	// Timeout is how long the breaker stays open before letting a probe through.
	Timeout time.Duration
}

// DefaultBreakerSettings returns the breaker defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{FailureThreshold: 25, Timeout: 30 * time.Second}
}

// Writer applies tasks with at most MaxConcurrentWrites in flight.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine; blocks while the writer is full
//   - Wait(): returns once every submitted task has completed and its
//     result has been delivered
//   - onResult: called from worker goroutines, concurrently
type Writer struct {
	store    Storage
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	breaker  *gobreaker.CircuitBreaker
	onResult func(Result)
}

// NewWriter creates a Writer. onResult receives every task's result.
func NewWriter(s Storage, settings BreakerSettings, onResult func(Result)) *Writer {
	return &Writer{
		store:    s,
		sem:      semaphore.NewWeighted(MaxConcurrentWrites),
		breaker:  newBreaker(settings),
		onResult: onResult,
	}
}

func newBreaker(settings BreakerSettings) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "sorsync-writer",
		Timeout:      settings.Timeout,
		IsSuccessful: healthy,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return settings.FailureThreshold > 0 && counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// healthy reports whether a storage call left the backend in good standing.
// A rejected row is a healthy answer from a working database.
func healthy(err error) bool {
	return !store.IsUnavailable(err)
}

// Submit queues a task. It blocks until a slot is free; waiting submitters
// are admitted in FIFO order. An error means the task was not queued.
func (w *Writer) Submit(ctx context.Context, t Task) error {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("submit %s %s: %w", t.Outcome, t.NaturalID, err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		res := w.apply(ctx, t)
		w.sem.Release(1)
		if w.onResult != nil {
			w.onResult(res)
		}
	}()
	return nil
}

// Wait blocks until every submitted task has completed.
func (w *Writer) Wait() {
	w.wg.Wait()
}

// BreakerState returns the circuit breaker's current state.
func (w *Writer) BreakerState() gobreaker.State {
	return w.breaker.State()
}

func (w *Writer) apply(ctx context.Context, t Task) Result {
	res := Result{Task: t, Outcome: t.Outcome}

	var err error
	switch t.Outcome {
	case Insert:
		res.Outcome, res.Affected, err = w.insertOrReactivate(ctx, t)
	case Update:
		res.Affected, err = w.call(func() (int64, error) {
			return w.store.WriteUpdate(ctx, t.Entity)
		})
	case Reactivate:
		res.Affected, err = w.call(func() (int64, error) {
			return w.store.WriteReactivate(ctx, t.Entity)
		})
	case Deactivate:
		res.Affected, err = w.call(func() (int64, error) {
			return w.store.WriteDeactivate(ctx, t.NaturalID, t.Source)
		})
	default:
		err = fmt.Errorf("outcome %s does not write", t.Outcome)
	}

	if err != nil {
		res.Affected = 0
		res.Err = NewWriteError(t.Source, t.NaturalID, err)
	}
	return res
}

// insertOrReactivate resolves an Insert candidate with one point read. The
// snapshot only indexes active rows, so a row found here is either inactive
// (reactivate) or was inserted by someone else after the snapshot (no write).
func (w *Writer) insertOrReactivate(ctx context.Context, t Task) (Outcome, int64, error) {
	var rec ir.MirrorRecord
	var found bool
	_, err := w.breaker.Execute(func() (interface{}, error) {
		var err error
		rec, found, err = w.store.LookupExisting(ctx, t.NaturalID, t.Source)
		return nil, err
	})
	if err != nil {
		return Insert, 0, fmt.Errorf("lookup existing: %w", err)
	}

	switch {
	case !found:
		n, err := w.call(func() (int64, error) {
			return w.store.WriteInsert(ctx, t.Entity)
		})
		return Insert, n, err
	case rec.Status == ir.StatusActive:
		return NoOpPresentButKnown, 0, nil
	default:
		n, err := w.call(func() (int64, error) {
			return w.store.WriteReactivate(ctx, t.Entity)
		})
		return Reactivate, n, err
	}
}

// call runs one storage write through the circuit breaker.
func (w *Writer) call(fn func() (int64, error)) (int64, error) {
	v, err := w.breaker.Execute(func() (interface{}, error) {
		n, err := fn()
		return n, err
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}
