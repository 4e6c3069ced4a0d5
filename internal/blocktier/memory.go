package blocktier

import (
	"context"
	"sync"

	"snapgc/internal/gc"
)

// MemoryBlockTier is an in-memory block tier, useful for testing.
// This implementation is safe for concurrent use.
type MemoryBlockTier struct {
	name      string
	snapshots map[string]string // primary handle -> snapshot id
	deleted   []string          // handles passed to DeleteSnapshot, in call order
	mu        sync.Mutex
}

// NewMemoryBlockTier creates an empty in-memory block tier.
func NewMemoryBlockTier(name string) *MemoryBlockTier {
	return &MemoryBlockTier{
		name:      name,
		snapshots: make(map[string]string),
	}
}

// AddSnapshot registers snapshot data under handle.
func (m *MemoryBlockTier) AddSnapshot(snapshotID, handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[handle] = snapshotID
}

// Has reports whether data for handle is still present.
func (m *MemoryBlockTier) Has(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snapshots[handle]
	return ok
}

// Deleted returns every handle passed to DeleteSnapshot, in call order.
func (m *MemoryBlockTier) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// DeleteSnapshot removes the data for handle. Missing data is not an error.
func (m *MemoryBlockTier) DeleteSnapshot(_ context.Context, snapshotID, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleted = append(m.deleted, handle)
	delete(m.snapshots, handle)
	return nil
}

// Compile-time check that MemoryBlockTier implements gc.BlockTier interface
var _ gc.BlockTier = (*MemoryBlockTier)(nil)
