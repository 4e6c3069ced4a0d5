package gc

import (
	"context"
	"fmt"
	"runtime/debug"

	"snapgc/internal/model"
)

// Reconciler drives snapshots marked for deletion through removal from the
// block tier and then the object tier. It keeps no state between cycles:
// every cycle re-derives its candidates from persisted status.
type Reconciler struct {
	repo    Repository
	block   BlockTier
	object  ObjectTier
	locks   LockRegistry
	logger  Logger
	metrics Metrics
	clock   Clock
	idgen   IDGenerator
}

// NewReconciler creates a Reconciler with the provided dependencies.
func NewReconciler(repo Repository, block BlockTier, object ObjectTier, locks LockRegistry, logger Logger, metrics Metrics, clock Clock, idgen IDGenerator) *Reconciler {
	return &Reconciler{
		repo:    repo,
		block:   block,
		object:  object,
		locks:   locks,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		idgen:   idgen,
	}
}

// RunCycle executes the primary-tier sweep to completion and then the
// secondary-tier sweep, on the calling goroutine. Per-snapshot failures are
// recorded in the report and retried on the next cycle; they never abort the
// cycle. Callers are responsible for not running cycles concurrently.
func (r *Reconciler) RunCycle(ctx context.Context) *CycleReport {
	report := &CycleReport{
		RunID:     r.idgen.New(),
		StartedAt: r.clock.Now(),
	}
	r.logger.Debug("reconciliation cycle started", "run", report.RunID)

	report.Primary = r.sweepPrimary(ctx)
	report.Secondary = r.sweepSecondary(ctx)

	report.FinishedAt = r.clock.Now()
	r.metrics.RecordCycle(report)

	r.logger.Info("reconciliation cycle finished",
		"run", report.RunID,
		"status", report.Status(),
		"primary_candidates", report.Primary.Candidates,
		"secondary_candidates", report.Secondary.Candidates,
		"held", report.Secondary.Held,
		"duration", report.Duration(),
	)
	return report
}

// sweep loads the candidates in status and runs process on each of them.
func (r *Reconciler) sweep(ctx context.Context, sweep Sweep, status model.Status, process func(context.Context, *model.SnapshotRecord) Outcome) SweepReport {
	var report SweepReport

	candidates, err := r.repo.FindSnapshotsByStatus(ctx, status)
	if err != nil {
		r.logger.Error("failed to look up snapshot candidates", "sweep", string(sweep), "status", string(status), "err", err)
		r.metrics.RecordLookupFailure(sweep)
		report.LookupErr = fmt.Errorf("looking up %s snapshots: %w", status, err)
		return report
	}

	if len(candidates) == 0 {
		r.logger.Debug("no snapshot candidates", "sweep", string(sweep), "status", string(status))
		return report
	}

	report.Candidates = len(candidates)
	for _, snap := range candidates {
		start := r.clock.Now()
		outcome := r.processSafely(ctx, sweep, snap, process)
		report.record(outcome)
		r.metrics.RecordOutcome(sweep, outcome, r.clock.Now().Sub(start))
	}

	return report
}

// processSafely runs process on one candidate. A panic is logged with its
// stack and reported as OutcomePanicked so the rest of the cycle still runs.
func (r *Reconciler) processSafely(ctx context.Context, sweep Sweep, snap *model.SnapshotRecord, process func(context.Context, *model.SnapshotRecord) Outcome) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic while processing snapshot, will retry later",
				"sweep", string(sweep), "snapshot", snap.ID, "panic", p, "stack", string(debug.Stack()))
			outcome = OutcomePanicked
		}
	}()
	return process(ctx, snap)
}

// markDeletedFromPrimary records that only the object-tier copy remains.
func (r *Reconciler) markDeletedFromPrimary(ctx context.Context, snap *model.SnapshotRecord) error {
	if err := r.repo.UpdateSnapshotStatus(ctx, snap.ID, snap.Status, model.StatusDeletedFromPrimary, nil); err != nil {
		return fmt.Errorf("setting %s to %s: %w", snap.ID, model.StatusDeletedFromPrimary, err)
	}
	return nil
}

// markDeleted moves the snapshot to its terminal status and stamps deleted_at.
func (r *Reconciler) markDeleted(ctx context.Context, snap *model.SnapshotRecord) error {
	now := r.clock.Now()
	if err := r.repo.UpdateSnapshotStatus(ctx, snap.ID, snap.Status, model.StatusDeleted, &now); err != nil {
		return fmt.Errorf("setting %s to %s: %w", snap.ID, model.StatusDeleted, err)
	}
	return nil
}
