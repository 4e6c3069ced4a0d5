package gc

import "context"

// LockHandle identifies a held advisory lock.
type LockHandle interface {
	Key() string
}

// LockRegistry is a keyed advisory mutual-exclusion primitive.
// It only protects a snapshot if every writer of its delta chain, including
// processes that extend the chain, takes the same key.
type LockRegistry interface {
	// Acquire blocks until key is free. It returns an error wrapping
	// ErrLockInterrupted if ctx ends first.
	Acquire(ctx context.Context, key string) (LockHandle, error)

	// Release gives up a held lock.
	Release(h LockHandle)

	// Forget drops the registry entry for key once nobody holds or waits on it.
	Forget(key string)
}

// withSnapshotLock runs fn while holding the lock for key. The lock is
// released and its entry forgotten on every exit path, including panics in fn.
func withSnapshotLock(ctx context.Context, locks LockRegistry, key string, fn func()) error {
	h, err := locks.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		locks.Release(h)
		locks.Forget(key)
	}()

	fn()
	return nil
}
