package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/sorsync/internal/ir"
)

// Storage is the storage surface a reconciliation run uses. It mirrors
// reconcile.Storage without importing it.
type Storage interface {
	LoadActive(ctx context.Context, source string) ([]ir.ActiveRow, error)
	LookupExisting(ctx context.Context, naturalID, source string) (ir.MirrorRecord, bool, error)
	WriteInsert(ctx context.Context, e ir.Entity) (int64, error)
	WriteUpdate(ctx context.Context, e ir.Entity) (int64, error)
	WriteReactivate(ctx context.Context, e ir.Entity) (int64, error)
	WriteDeactivate(ctx context.Context, naturalID, source string) (int64, error)
}

// FlakyStore wraps a real store and injects failures. Writes for natural ids
// registered with FailWrites return the injected error without touching the
// database; everything else is delegated.
//
// It also records the peak number of concurrent write calls, optionally
// holding each call for Delay so overlapping writes can be observed.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FlakyStore struct {
	inner Storage

	// Delay holds every write call before it is delegated.
	Delay time.Duration

	mu          sync.Mutex
	failWrites  map[string]error
	failLoad    error
	failLookup  error
	writes      map[string]int
	inFlight    int
	maxInFlight int
}

// NewFlakyStore wraps inner.
func NewFlakyStore(inner Storage) *FlakyStore {
	return &FlakyStore{
		inner:      inner,
		failWrites: make(map[string]error),
		writes:     make(map[string]int),
	}
}

// FailWrites makes every write for naturalID return err.
func (f *FlakyStore) FailWrites(naturalID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites[naturalID] = err
}

// FailLoad makes LoadActive return err.
func (f *FlakyStore) FailLoad(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLoad = err
}

// FailLookups makes LookupExisting return err.
func (f *FlakyStore) FailLookups(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLookup = err
}

// Writes returns how many write calls were made for naturalID, failed ones included.
func (f *FlakyStore) Writes(naturalID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[naturalID]
}

// TotalWrites returns the number of write calls across all natural ids.
func (f *FlakyStore) TotalWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.writes {
		total += n
	}
	return total
}

// MaxInFlight returns the peak number of write calls that overlapped.
func (f *FlakyStore) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *FlakyStore) LoadActive(ctx context.Context, source string) ([]ir.ActiveRow, error) {
	f.mu.Lock()
	err := f.failLoad
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.inner.LoadActive(ctx, source)
}

func (f *FlakyStore) LookupExisting(ctx context.Context, naturalID, source string) (ir.MirrorRecord, bool, error) {
	f.mu.Lock()
	err := f.failLookup
	f.mu.Unlock()
	if err != nil {
		return ir.MirrorRecord{}, false, err
	}
	return f.inner.LookupExisting(ctx, naturalID, source)
}

func (f *FlakyStore) WriteInsert(ctx context.Context, e ir.Entity) (int64, error) {
	return f.write(ctx, e.NaturalID, func() (int64, error) { return f.inner.WriteInsert(ctx, e) })
}

func (f *FlakyStore) WriteUpdate(ctx context.Context, e ir.Entity) (int64, error) {
	return f.write(ctx, e.NaturalID, func() (int64, error) { return f.inner.WriteUpdate(ctx, e) })
}

func (f *FlakyStore) WriteReactivate(ctx context.Context, e ir.Entity) (int64, error) {
	return f.write(ctx, e.NaturalID, func() (int64, error) { return f.inner.WriteReactivate(ctx, e) })
}

func (f *FlakyStore) WriteDeactivate(ctx context.Context, naturalID, source string) (int64, error) {
	return f.write(ctx, naturalID, func() (int64, error) { return f.inner.WriteDeactivate(ctx, naturalID, source) })
}

func (f *FlakyStore) write(ctx context.Context, naturalID string, fn func() (int64, error)) (int64, error) {
	f.mu.Lock()
	f.writes[naturalID]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	err := f.failWrites[naturalID]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}
	return fn()
}
