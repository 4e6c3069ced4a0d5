package objecttier

import (
	"context"
	"sync"

	"snapgc/internal/gc"
)

// MemoryObjectTier is an in-memory object tier, useful for testing.
// This implementation is safe for concurrent use.
type MemoryObjectTier struct {
	name    string
	objects map[string][]byte // "bucket/key" -> data
	deleted []string          // "bucket/key" passed to DeleteObject, in call order
	mu      sync.RWMutex
}

// NewMemoryObjectTier creates an empty in-memory object tier.
func NewMemoryObjectTier(name string) *MemoryObjectTier {
	return &MemoryObjectTier{
		name:    name,
		objects: make(map[string][]byte),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

// PutObject stores data under bucket/key.
func (m *MemoryObjectTier) PutObject(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey(bucket, key)] = data
}

// Has reports whether bucket/key is present.
func (m *MemoryObjectTier) Has(bucket, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[objectKey(bucket, key)]
	return ok
}

// Deleted returns every object passed to DeleteObject, in call order.
func (m *MemoryObjectTier) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// DeleteObject removes bucket/key. Missing objects are not an error.
func (m *MemoryObjectTier) DeleteObject(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := objectKey(bucket, key)
	m.deleted = append(m.deleted, k)
	delete(m.objects, k)
	return nil
}

// Compile-time check that MemoryObjectTier implements gc.ObjectTier interface
var _ gc.ObjectTier = (*MemoryObjectTier)(nil)
