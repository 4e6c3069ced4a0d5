package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"snapgc/internal/database/migrations"
	"snapgc/internal/gc"
	"snapgc/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase stores snapshot records and cycle history in SQLite.
// It implements gc.Repository.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The daemon and one-shot CLI commands may share the file.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

const snapshotColumns = `id, volume_id, tier_name, status, origin, previous_id, remote_location,
	primary_handle, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*model.SnapshotRecord, error) {
	var (
		snap           model.SnapshotRecord
		status, origin string
		previousID     sql.NullString
		remoteLocation sql.NullString
		deletedAt      sql.NullTime
	)

	err := row.Scan(&snap.ID, &snap.VolumeID, &snap.TierName, &status, &origin, &previousID,
		&remoteLocation, &snap.PrimaryHandle, &snap.CreatedAt, &snap.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	snap.Status = model.Status(status)
	snap.Origin = model.Origin(origin)
	snap.PreviousID = previousID.String
	snap.RemoteLocation = remoteLocation.String
	if deletedAt.Valid {
		t := deletedAt.Time
		snap.DeletedAt = &t
	}
	return &snap, nil
}

func (s *SQLiteDatabase) querySnapshots(ctx context.Context, query string, args ...any) ([]*model.SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*model.SnapshotRecord
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Snapshot operations

// InsertSnapshot records a new snapshot. Snapshots are normally created by the
// upstream volume service; this is used by tooling and tests.
func (s *SQLiteDatabase) InsertSnapshot(ctx context.Context, snap *model.SnapshotRecord) error {
	now := time.Now().UTC()
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = snap.CreatedAt
	}
	if snap.Origin == "" {
		snap.Origin = model.OriginUnknown
	}

	var deletedAt sql.NullTime
	if snap.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *snap.DeletedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.VolumeID, snap.TierName, string(snap.Status), string(snap.Origin),
		nullString(snap.PreviousID), nullString(snap.RemoteLocation), snap.PrimaryHandle,
		snap.CreatedAt, snap.UpdatedAt, deletedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// MarkSnapshotDeleting flags a live snapshot for deletion. Snapshots already
// in a deletion status are left alone and reported as ErrConflict.
func (s *SQLiteDatabase) MarkSnapshotDeleting(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE snapshots SET status = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?, ?)`,
		string(model.StatusDeleting), time.Now().UTC(), id,
		string(model.StatusDeleting), string(model.StatusDeletedFromPrimary), string(model.StatusDeleted),
	)
	if err != nil {
		return fmt.Errorf("marking snapshot %s for deletion: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking snapshot %s for deletion: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	existing, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("snapshot %s: %w", id, gc.ErrNotFound)
	}
	return fmt.Errorf("snapshot %s is already %s: %w", id, existing.Status, gc.ErrConflict)
}

// GetSnapshot returns the snapshot with the given id, or nil if it does not exist.
func (s *SQLiteDatabase) GetSnapshot(ctx context.Context, id string) (*model.SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("getting snapshot %s: %w", id, err)
	}
	return snap, nil
}

// FindSnapshotsByStatus returns snapshots in status, oldest first.
func (s *SQLiteDatabase) FindSnapshotsByStatus(ctx context.Context, status model.Status) ([]*model.SnapshotRecord, error) {
	snaps, err := s.querySnapshots(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE status = ? ORDER BY created_at, id`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("finding snapshots by status: %w", err)
	}
	return snaps, nil
}

// FindLiveDependents returns locally created, not yet deleted snapshots in the
// same volume and tier whose delta predecessor is previousID.
func (s *SQLiteDatabase) FindLiveDependents(ctx context.Context, volumeID, tierName, previousID string) ([]*model.SnapshotRecord, error) {
	snaps, err := s.querySnapshots(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE volume_id = ? AND tier_name = ? AND previous_id = ?
		  AND origin = ? AND status <> ?
		ORDER BY created_at, id`,
		volumeID, tierName, previousID, string(model.OriginLocal), string(model.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("finding dependents of %s: %w", previousID, err)
	}
	return snaps, nil
}

// UpdateSnapshotStatus moves a snapshot from one status to the next allowed one,
// failing when the stored status is no longer from.
func (s *SQLiteDatabase) UpdateSnapshotStatus(ctx context.Context, id string, from, to model.Status, deletedAt *time.Time) error {
	if !from.CanAdvanceTo(to) {
		return fmt.Errorf("%w: %s -> %s", gc.ErrInvalidTransition, from, to)
	}
	if to == model.StatusDeleted && deletedAt == nil {
		return fmt.Errorf("deleted_at required when setting %s to %s", id, to)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM snapshots WHERE id = ?`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", gc.ErrNotFound, id)
		}
		return fmt.Errorf("reading status of %s: %w", id, err)
	}
	if model.Status(current) != from {
		return fmt.Errorf("%w: %s is %s, expected %s", gc.ErrConflict, id, current, from)
	}

	now := time.Now().UTC()
	var res sql.Result
	if to == model.StatusDeleted {
		res, err = tx.ExecContext(ctx,
			`UPDATE snapshots SET status = ?, updated_at = ?, deleted_at = ? WHERE id = ? AND status = ?`,
			string(to), now, deletedAt.UTC(), id, string(from))
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE snapshots SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), now, id, string(from))
	}
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("%w: %s changed during update", gc.ErrConflict, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CountSnapshotsByStatus returns the number of snapshots in each status.
func (s *SQLiteDatabase) CountSnapshotsByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM snapshots GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting snapshots: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning snapshot count: %w", err)
		}
		counts[model.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting snapshots: %w", err)
	}
	return counts, nil
}

// Cycle operations

// CreateCycle records the start of a reconciliation cycle.
func (s *SQLiteDatabase) CreateCycle(ctx context.Context, runID string, startedAt time.Time) (*model.Cycle, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (run_id, started_at, status) VALUES (?, ?, 'running')`,
		runID, startedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("creating cycle: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading cycle id: %w", err)
	}

	return &model.Cycle{ID: id, RunID: runID, StartedAt: startedAt.UTC(), Status: "running"}, nil
}

// FinishCycle stores the final status and counters of a cycle.
func (s *SQLiteDatabase) FinishCycle(ctx context.Context, c *model.Cycle) error {
	if !c.FinishedAt.Valid {
		c.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cycles SET finished_at = ?, status = ?,
			primary_candidates = ?, primary_deleted = ?, primary_failed = ?,
			secondary_candidates = ?, secondary_deleted = ?, secondary_held = ?, secondary_failed = ?
		WHERE id = ?`,
		c.FinishedAt, c.Status,
		c.PrimaryCandidates, c.PrimaryDeleted, c.PrimaryFailed,
		c.SecondaryCandidates, c.SecondaryDeleted, c.SecondaryHeld, c.SecondaryFailed,
		c.ID)
	if err != nil {
		return fmt.Errorf("finishing cycle: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing cycle: no cycle with id %d", c.ID)
	}
	return nil
}

// ListCycles returns the most recent cycles, newest first.
func (s *SQLiteDatabase) ListCycles(ctx context.Context, limit int) ([]*model.Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, started_at, finished_at, status,
			primary_candidates, primary_deleted, primary_failed,
			secondary_candidates, secondary_deleted, secondary_held, secondary_failed
		FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing cycles: %w", err)
	}
	defer rows.Close()

	var result []*model.Cycle
	for rows.Next() {
		var c model.Cycle
		if err := rows.Scan(&c.ID, &c.RunID, &c.StartedAt, &c.FinishedAt, &c.Status,
			&c.PrimaryCandidates, &c.PrimaryDeleted, &c.PrimaryFailed,
			&c.SecondaryCandidates, &c.SecondaryDeleted, &c.SecondaryHeld, &c.SecondaryFailed); err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing cycles: %w", err)
	}
	return result, nil
}

// Path returns the file path of the database.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteDatabase implements gc.Repository
var _ gc.Repository = (*SQLiteDatabase)(nil)
