// Package lock provides an in-process keyed advisory lock registry.
package lock

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"snapgc/internal/gc"
)

// Registry hands out one exclusive lock per key. Entries are created on first
// acquisition and dropped by Forget once no goroutine holds or waits on them,
// so the map never grows beyond the set of keys in active use.
// This implementation is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  *semaphore.Weighted
	refs int // holders plus waiters
}

// Handle is a held lock returned by Acquire.
type Handle struct {
	key      string
	entry    *entry
	mu       sync.Mutex
	released bool
}

func (h *Handle) Key() string { return h.key }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire blocks until key is free or ctx is done.
func (r *Registry) Acquire(ctx context.Context, key string) (gc.LockHandle, error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		r.mu.Lock()
		e.refs--
		r.dropIfIdle(key, e)
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: %v", gc.ErrLockInterrupted, key, err)
	}

	return &Handle{key: key, entry: e}, nil
}

// Release gives up a lock obtained from Acquire. Releasing twice is a no-op.
func (r *Registry) Release(lh gc.LockHandle) {
	h, ok := lh.(*Handle)
	if !ok || h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true

	r.mu.Lock()
	h.entry.refs--
	r.mu.Unlock()
	h.entry.sem.Release(1)
}

// Forget removes the entry for key if nobody holds or waits on it.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		r.dropIfIdle(key, e)
	}
}

// Len returns the number of keys currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// dropIfIdle must be called with r.mu held.
func (r *Registry) dropIfIdle(key string, e *entry) {
	if e.refs == 0 && r.entries[key] == e {
		delete(r.entries, key)
	}
}

// Compile-time check that Registry implements gc.LockRegistry
var _ gc.LockRegistry = (*Registry)(nil)
