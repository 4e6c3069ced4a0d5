package gc

import (
	"context"

	"snapgc/internal/model"
)

func (r *Reconciler) sweepPrimary(ctx context.Context) SweepReport {
	return r.sweep(ctx, SweepPrimary, model.StatusDeleting, r.deleteFromPrimary)
}

// deleteFromPrimary removes one snapshot from the block tier. Snapshots of
// local origin are processed under their advisory lock so deletion cannot
// interleave with delta creation against the same snapshot.
func (r *Reconciler) deleteFromPrimary(ctx context.Context, snap *model.SnapshotRecord) Outcome {
	r.logger.Debug("snapshot marked for deletion from block tier", "snapshot", snap.ID, "origin", string(snap.Origin))

	if snap.Origin != model.OriginLocal {
		return r.deleteSnapFromPrimary(ctx, snap)
	}

	var outcome Outcome
	err := withSnapshotLock(ctx, r.locks, snap.ID, func() {
		outcome = r.deleteSnapFromPrimary(ctx, snap)
	})
	if err != nil {
		r.logger.Warn("cannot acquire snapshot lock, will retry later", "snapshot", snap.ID, "err", err)
		return OutcomeLockInterrupted
	}
	return outcome
}

func (r *Reconciler) deleteSnapFromPrimary(ctx context.Context, snap *model.SnapshotRecord) Outcome {
	if err := r.block.DeleteSnapshot(ctx, snap.ID, snap.PrimaryHandle); err != nil {
		r.logger.Warn("unable to delete snapshot from block tier, will retry later", "snapshot", snap.ID, "err", err)
		return OutcomeGatewayFailed
	}

	if snap.HasRemoteLocation() {
		// The object-tier copy needs its own dependency evaluation.
		if err := r.markDeletedFromPrimary(ctx, snap); err != nil {
			r.logger.Warn("failed to update snapshot status", "snapshot", snap.ID, "err", err)
			return OutcomeUpdateFailed
		}
		r.logger.Debug("snapshot deleted from block tier", "snapshot", snap.ID, "status", string(model.StatusDeletedFromPrimary))
		return OutcomeAdvanced
	}

	// Never uploaded, so nothing is left to clean up.
	if err := r.markDeleted(ctx, snap); err != nil {
		r.logger.Warn("failed to update snapshot status", "snapshot", snap.ID, "err", err)
		return OutcomeUpdateFailed
	}
	r.logger.Info("snapshot deleted", "snapshot", snap.ID, "tier", "block")
	return OutcomeDeleted
}
