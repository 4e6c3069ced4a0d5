package testutil

import (
	"context"
	"fmt"
	"sync"

	"snapgc/internal/gc"
	"snapgc/internal/lock"
)

// RecordingLockRegistry wraps a real lock.Registry, counts calls per key and
// can refuse chosen keys as if the wait had been interrupted.
type RecordingLockRegistry struct {
	*lock.Registry

	mu        sync.Mutex
	interrupt map[string]bool
	acquired  map[string]int
	released  map[string]int
	forgotten map[string]int
}

// NewRecordingLockRegistry creates an empty recording registry.
func NewRecordingLockRegistry() *RecordingLockRegistry {
	return &RecordingLockRegistry{
		Registry:  lock.NewRegistry(),
		interrupt: make(map[string]bool),
		acquired:  make(map[string]int),
		released:  make(map[string]int),
		forgotten: make(map[string]int),
	}
}

// InterruptOn makes Acquire(key) fail with gc.ErrLockInterrupted.
func (r *RecordingLockRegistry) InterruptOn(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interrupt[key] = true
}

func (r *RecordingLockRegistry) Acquire(ctx context.Context, key string) (gc.LockHandle, error) {
	r.mu.Lock()
	interrupted := r.interrupt[key]
	r.mu.Unlock()

	if interrupted {
		return nil, fmt.Errorf("%w: %s: injected", gc.ErrLockInterrupted, key)
	}

	h, err := r.Registry.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.acquired[key]++
	r.mu.Unlock()
	return h, nil
}

func (r *RecordingLockRegistry) Release(h gc.LockHandle) {
	r.mu.Lock()
	r.released[h.Key()]++
	r.mu.Unlock()

	r.Registry.Release(h)
}

func (r *RecordingLockRegistry) Forget(key string) {
	r.mu.Lock()
	r.forgotten[key]++
	r.mu.Unlock()

	r.Registry.Forget(key)
}

// Acquired returns how many times key was successfully acquired.
func (r *RecordingLockRegistry) Acquired(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquired[key]
}

// Released returns how many times a handle for key was released.
func (r *RecordingLockRegistry) Released(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released[key]
}

// Forgotten returns how many times key was forgotten.
func (r *RecordingLockRegistry) Forgotten(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forgotten[key]
}

var _ gc.LockRegistry = (*RecordingLockRegistry)(nil)
