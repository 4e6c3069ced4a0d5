package model

import (
	"database/sql"
	"strings"
	"time"
)

// Status is the lifecycle state of a snapshot record.
// Only StatusDeleting, StatusDeletedFromPrimary and StatusDeleted are acted on
// by the reconciler; any other value is set upstream and treated as opaque.
type Status string

const (
	StatusDeleting           Status = "deleting"
	StatusDeletedFromPrimary Status = "deleted_from_primary"
	StatusDeleted            Status = "deleted"
)

// CanAdvanceTo reports whether moving from s to next is a legal forward step.
func (s Status) CanAdvanceTo(next Status) bool {
	switch s {
	case StatusDeleting:
		return next == StatusDeletedFromPrimary || next == StatusDeleted
	case StatusDeletedFromPrimary:
		return next == StatusDeleted
	default:
		return false
	}
}

// Origin records where a snapshot's delta data was computed.
type Origin string

const (
	// OriginLocal means the delta was computed in this zone and may have dependents.
	OriginLocal Origin = "local"
	// OriginCopied means the data was replicated in; no local dependents are possible.
	OriginCopied Origin = "copied"
	// OriginUnknown marks records that predate chain tracking.
	OriginUnknown Origin = "unknown"
)

// SnapshotRecord is the persisted state of a single block-storage snapshot.
type SnapshotRecord struct {
	ID             string     // External snapshot identifier
	VolumeID       string     // Owning volume
	TierName       string     // Storage-tier instance; scopes chain lookups with VolumeID
	Status         Status
	Origin         Origin
	PreviousID     string     // Delta predecessor, empty when none
	RemoteLocation string     // "bucket/key", empty when never uploaded
	PrimaryHandle  string     // Identifier passed to the block tier on delete
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time // Set once, on the transition to StatusDeleted
}

// HasRemoteLocation reports whether the snapshot was ever uploaded to the object tier.
func (r *SnapshotRecord) HasRemoteLocation() bool {
	return strings.TrimSpace(r.RemoteLocation) != ""
}

// Cycle is the persisted summary of one reconciliation cycle.
type Cycle struct {
	ID                  int64
	RunID               string
	StartedAt           time.Time
	FinishedAt          sql.NullTime
	Status              string // "running", "success" or "partial"
	PrimaryCandidates   int
	PrimaryDeleted      int
	PrimaryFailed       int
	SecondaryCandidates int
	SecondaryDeleted    int
	SecondaryHeld       int
	SecondaryFailed     int
}
