package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"snapgc/internal/blocktier"
	"snapgc/internal/config"
	"snapgc/internal/database"
	"snapgc/internal/gc"
	"snapgc/internal/lock"
	"snapgc/internal/metrics"
	"snapgc/internal/model"
	"snapgc/internal/objecttier"
)

// SnapGCApp is the application layer between the CLI and the reconciler.
// It constructs all dependencies from config, records every cycle it runs,
// and manages the DB lifecycle on Close.
type SnapGCApp struct {
	cfg        *config.Config
	db         *database.SQLiteDatabase
	locks      *lock.Registry
	metrics    *metrics.Collector
	reconciler *gc.Reconciler
	logger     *slog.Logger
	logFile    *os.File
}

// NewSnapGCApp creates a fully wired SnapGCApp from the given config.
// operation identifies the CLI command being run (e.g. "run", "daemon").
// The caller must call Close when done.
func NewSnapGCApp(ctx context.Context, cfg *config.Config, operation string) (*SnapGCApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	block, err := blocktier.NewBlockTierFromConfig(cfg.BlockTier)
	if err != nil {
		return nil, fmt.Errorf("creating block tier: %w", err)
	}

	object, err := objecttier.NewObjectTierFromConfig(ctx, cfg.ObjectTier)
	if err != nil {
		return nil, fmt.Errorf("creating object tier: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger = logger.With("op", operation)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	locks := lock.NewRegistry()
	rec := gc.NewReconciler(db, block, object, locks, &slogAdapter{l: logger}, collector, gc.RealClock{}, gc.UUIDGenerator{})

	return &SnapGCApp{
		cfg:        cfg,
		db:         db,
		locks:      locks,
		metrics:    collector,
		reconciler: rec,
		logger:     logger,
		logFile:    logFile,
	}, nil
}

// RunCycle runs one reconciliation cycle and records it in the cycle history.
// The report is returned even when recording fails.
func (a *SnapGCApp) RunCycle(ctx context.Context) (*gc.CycleReport, error) {
	report := a.reconciler.RunCycle(ctx)

	row, err := a.db.CreateCycle(ctx, report.RunID, report.StartedAt)
	if err != nil {
		return report, fmt.Errorf("recording cycle %s: %w", report.RunID, err)
	}
	applyReport(row, report)
	if err := a.db.FinishCycle(ctx, row); err != nil {
		return report, fmt.Errorf("recording cycle %s: %w", report.RunID, err)
	}

	if n := a.locks.Len(); n != 0 {
		a.logger.Warn("lock registry not empty after cycle", "run", report.RunID, "entries", n)
	}
	return report, nil
}

// GetStatus returns the number of snapshots in each status.
func (a *SnapGCApp) GetStatus(ctx context.Context) (map[model.Status]int, error) {
	return a.db.CountSnapshotsByStatus(ctx)
}

// GetHistory returns the most recent cycles, newest first.
func (a *SnapGCApp) GetHistory(ctx context.Context, limit int) ([]*model.Cycle, error) {
	return a.db.ListCycles(ctx, limit)
}

// MarkForDeletion flags a snapshot so the next cycle starts deleting it.
func (a *SnapGCApp) MarkForDeletion(ctx context.Context, snapshotID string) error {
	if err := a.db.MarkSnapshotDeleting(ctx, snapshotID); err != nil {
		return err
	}
	a.logger.Info("snapshot marked for deletion", "snapshot", snapshotID)
	return nil
}

// Close closes the database and the log file.
func (a *SnapGCApp) Close() error {
	var firstErr error

	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
