package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"snapgc/internal/database"
	"snapgc/internal/model"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB)
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// InsertSnapshot stores snap, filling VolumeID, TierName and timestamps when empty.
// Snapshots inserted by successive calls get increasing CreatedAt values.
func InsertSnapshot(t *testing.T, db *database.SQLiteDatabase, snap *model.SnapshotRecord) *model.SnapshotRecord {
	t.Helper()

	if snap.VolumeID == "" {
		snap.VolumeID = "vol-1"
	}
	if snap.TierName == "" {
		snap.TierName = "tier-1"
	}
	if snap.CreatedAt.IsZero() {
		seq := insertSeq.Add(1)
		snap.CreatedAt = FixedClock().Now().Add(time.Duration(seq) * time.Second)
		snap.UpdatedAt = snap.CreatedAt
	}

	if err := db.InsertSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("InsertSnapshot(%s) error = %v", snap.ID, err)
	}
	return snap
}

var insertSeq atomic.Int64

// RequireStatus fails the test unless the stored snapshot has the given status.
func RequireStatus(t *testing.T, db *database.SQLiteDatabase, id string, want model.Status) *model.SnapshotRecord {
	t.Helper()

	got, err := db.GetSnapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSnapshot(%s) error = %v", id, err)
	}
	if got == nil {
		t.Fatalf("GetSnapshot(%s) = nil, want a record", id)
	}
	if got.Status != want {
		t.Fatalf("snapshot %s status = %q, want %q", id, got.Status, want)
	}
	return got
}
