package reconcile

import (
	"context"

	"github.com/roach88/sorsync/internal/ir"
)

// Storage is the storage collaborator a run consumes. *store.Store
// implements it.
type Storage interface {
	// LoadActive returns every active row of a source.
	LoadActive(ctx context.Context, source string) ([]ir.ActiveRow, error)

	// LookupExisting returns the row for (naturalID, source) in any status.
	LookupExisting(ctx context.Context, naturalID, source string) (ir.MirrorRecord, bool, error)

	WriteInsert(ctx context.Context, e ir.Entity) (int64, error)
	WriteUpdate(ctx context.Context, e ir.Entity) (int64, error)
	WriteReactivate(ctx context.Context, e ir.Entity) (int64, error)
	WriteDeactivate(ctx context.Context, naturalID, source string) (int64, error)
}
