package checkpoint

import (
	"context"
	"fmt"
)

// Store persists checkpoint records for runs. Implementations must guarantee
// that after Write returns successfully, a subsequent Load reflects the
// record even across process restarts, and that no partial record is ever
// visible to a reader.
type Store interface {
	// Write durably commits one record.
	Write(ctx context.Context, record *Record) error

	// Records returns all persisted records for a run id, in write order.
	// A run with no records returns an empty slice.
	Records(ctx context.Context, runID string) ([]*Record, error)

	// Load folds the run's records into its current state. A run with no
	// records yields a fresh state.
	Load(ctx context.Context, runID string) (*State, error)
}

// PersistenceError indicates the underlying storage failed. Callers must
// treat it as fatal for the run: continuing without durable checkpoints
// risks silent progress loss.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
