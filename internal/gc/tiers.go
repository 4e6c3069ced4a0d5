package gc

import "context"

// BlockTier removes snapshot data from the fast, local primary tier.
type BlockTier interface {
	// DeleteSnapshot removes the snapshot's data using its tier-specific handle.
	// Deleting a snapshot that is already gone must succeed, so a retry after a
	// failed status update stays idempotent.
	DeleteSnapshot(ctx context.Context, snapshotID, primaryHandle string) error
}

// ObjectTier removes uploaded snapshot data from the durable secondary tier.
type ObjectTier interface {
	// DeleteObject removes bucket/key. A missing object is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error
}
