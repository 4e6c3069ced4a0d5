package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"snapgc/internal/gc"
)

func TestRegistry_AcquireReleaseForget(t *testing.T) {
	t.Run("leaves no entry behind after release and forget", func(t *testing.T) {
		r := NewRegistry()

		h, err := r.Acquire(context.Background(), "snap-1")
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if h.Key() != "snap-1" {
			t.Errorf("Key() = %q, want %q", h.Key(), "snap-1")
		}
		if r.Len() != 1 {
			t.Errorf("Len() while held = %d, want 1", r.Len())
		}

		r.Release(h)
		r.Forget("snap-1")

		if r.Len() != 0 {
			t.Errorf("Len() after forget = %d, want 0", r.Len())
		}
	})

	t.Run("forget keeps entry that is still held", func(t *testing.T) {
		r := NewRegistry()

		h, err := r.Acquire(context.Background(), "snap-1")
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}

		r.Forget("snap-1")
		if r.Len() != 1 {
			t.Errorf("Len() = %d, want 1", r.Len())
		}

		r.Release(h)
		r.Forget("snap-1")
		if r.Len() != 0 {
			t.Errorf("Len() = %d, want 0", r.Len())
		}
	})

	t.Run("double release is a no-op", func(t *testing.T) {
		r := NewRegistry()

		h, _ := r.Acquire(context.Background(), "snap-1")
		r.Release(h)
		r.Release(h)
		r.Forget("snap-1")

		// The key must still be acquirable exactly once.
		h2, err := r.Acquire(context.Background(), "snap-1")
		if err != nil {
			t.Fatalf("Acquire() after double release error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := r.Acquire(ctx, "snap-1"); err == nil {
			t.Error("second Acquire() succeeded while key is held")
		}

		r.Release(h2)
	})

	t.Run("forget of unknown key is a no-op", func(t *testing.T) {
		r := NewRegistry()
		r.Forget("missing")
		if r.Len() != 0 {
			t.Errorf("Len() = %d, want 0", r.Len())
		}
	})
}

func TestRegistry_Interrupted(t *testing.T) {
	r := NewRegistry()

	h, err := r.Acquire(context.Background(), "snap-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Acquire(ctx, "snap-1")
	if !errors.Is(err, gc.ErrLockInterrupted) {
		t.Fatalf("Acquire() error = %v, want ErrLockInterrupted", err)
	}

	r.Release(h)
	r.Forget("snap-1")
	if r.Len() != 0 {
		t.Errorf("Len() after interrupted waiter = %d, want 0", r.Len())
	}
}

func TestRegistry_SerializesSameKey(t *testing.T) {
	r := NewRegistry()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := r.Acquire(context.Background(), "snap-1")
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()

			r.Release(h)
			r.Forget("snap-1")
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_DistinctKeysDoNotContend(t *testing.T) {
	r := NewRegistry()

	h1, err := r.Acquire(context.Background(), "snap-1")
	if err != nil {
		t.Fatalf("Acquire(snap-1) error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h2, err := r.Acquire(ctx, "snap-2")
	if err != nil {
		t.Fatalf("Acquire(snap-2) error = %v", err)
	}

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	r.Release(h1)
	r.Release(h2)
	r.Forget("snap-1")
	r.Forget("snap-2")
}
