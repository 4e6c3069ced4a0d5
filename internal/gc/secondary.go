package gc

import (
	"context"
	"strings"

	"snapgc/internal/model"
)

func (r *Reconciler) sweepSecondary(ctx context.Context) SweepReport {
	return r.sweep(ctx, SweepSecondary, model.StatusDeletedFromPrimary, r.deleteFromSecondary)
}

// deleteFromSecondary decides, based on origin, whether the snapshot's
// object-tier copy can be removed and removes it.
func (r *Reconciler) deleteFromSecondary(ctx context.Context, snap *model.SnapshotRecord) Outcome {
	r.logger.Debug("snapshot marked for deletion from object tier", "snapshot", snap.ID, "origin", string(snap.Origin))

	switch snap.Origin {
	case model.OriginLocal:
		dependents, err := r.repo.FindLiveDependents(ctx, snap.VolumeID, snap.TierName, snap.ID)
		if err != nil {
			r.logger.Warn("failed to look up snapshots that may depend on snapshot", "snapshot", snap.ID, "err", err)
			return OutcomeLookupFailed
		}
		if len(dependents) > 0 {
			r.logger.Debug("snapshot is required to restore other snapshots, keeping object tier copy",
				"snapshot", snap.ID, "children", childIDs(dependents))
			return OutcomeHeld
		}
		return r.deleteSnapFromSecondary(ctx, snap)

	case model.OriginCopied:
		// The zone holding the local copy owns the object-tier data.
		if err := r.markDeleted(ctx, snap); err != nil {
			r.logger.Warn("failed to update snapshot status", "snapshot", snap.ID, "err", err)
			return OutcomeUpdateFailed
		}
		r.logger.Info("snapshot deleted", "snapshot", snap.ID, "tier", "object", "skipped_remote", true)
		return OutcomeDeleted

	default:
		// Predates chain tracking, so nothing can depend on it.
		return r.deleteSnapFromSecondary(ctx, snap)
	}
}

func (r *Reconciler) deleteSnapFromSecondary(ctx context.Context, snap *model.SnapshotRecord) Outcome {
	bucket, key, err := ParseLocation(snap.RemoteLocation)
	if err != nil {
		r.logger.Warn("snapshot has no usable remote location, skipping object tier deletion", "snapshot", snap.ID, "err", err)
		return OutcomeInvalidLocation
	}

	if err := r.object.DeleteObject(ctx, bucket, key); err != nil {
		r.logger.Warn("unable to delete snapshot from object tier, will retry later", "snapshot", snap.ID, "err", err)
		return OutcomeGatewayFailed
	}

	if err := r.markDeleted(ctx, snap); err != nil {
		r.logger.Warn("failed to update snapshot status", "snapshot", snap.ID, "err", err)
		return OutcomeUpdateFailed
	}
	r.logger.Info("snapshot deleted", "snapshot", snap.ID, "tier", "object")
	return OutcomeDeleted
}

func childIDs(snaps []*model.SnapshotRecord) string {
	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	return strings.Join(ids, ", ")
}
