package gc

import (
	"context"
	"time"

	"snapgc/internal/model"
)

// Repository provides transactional access to persisted snapshot records.
type Repository interface {
	// FindSnapshotsByStatus returns every snapshot currently in the given status.
	FindSnapshotsByStatus(ctx context.Context, status model.Status) ([]*model.SnapshotRecord, error)

	// FindLiveDependents returns the snapshots in the same volume and tier whose
	// delta predecessor is previousID, restricted to local origin and excluding
	// snapshots that are already deleted.
	FindLiveDependents(ctx context.Context, volumeID, tierName, previousID string) ([]*model.SnapshotRecord, error)

	// UpdateSnapshotStatus moves a snapshot from one status to the next in a
	// single transaction. deletedAt must be set when to is StatusDeleted.
	// Returns ErrNotFound if the row is gone, ErrConflict if it is no longer
	// in status from, and ErrInvalidTransition if the step is not forward.
	UpdateSnapshotStatus(ctx context.Context, id string, from, to model.Status, deletedAt *time.Time) error
}
