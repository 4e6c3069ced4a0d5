package testutil

import (
	"context"
	"errors"
	"sync"

	"snapgc/internal/gc"
)

// ErrInjected is returned by the flaky tiers for targets set up to fail.
var ErrInjected = errors.New("injected failure")

// FlakyBlockTier wraps a block tier and fails deletes of chosen snapshot IDs.
type FlakyBlockTier struct {
	inner gc.BlockTier

	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

// NewFlakyBlockTier wraps inner.
func NewFlakyBlockTier(inner gc.BlockTier) *FlakyBlockTier {
	return &FlakyBlockTier{inner: inner, fail: make(map[string]error)}
}

// FailOn makes deletes of snapshotID return err until Heal is called.
// A nil err means ErrInjected.
func (f *FlakyBlockTier) FailOn(snapshotID string, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[snapshotID] = err
}

// Heal clears every injected failure.
func (f *FlakyBlockTier) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = make(map[string]error)
}

// Calls returns the snapshot IDs passed to DeleteSnapshot, in call order.
func (f *FlakyBlockTier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FlakyBlockTier) DeleteSnapshot(ctx context.Context, snapshotID, primaryHandle string) error {
	f.mu.Lock()
	f.calls = append(f.calls, snapshotID)
	err := f.fail[snapshotID]
	f.mu.Unlock()

	if err != nil {
		return &gc.GatewayError{Tier: "block", Op: "delete", Target: snapshotID, Err: err}
	}
	return f.inner.DeleteSnapshot(ctx, snapshotID, primaryHandle)
}

// FlakyObjectTier wraps an object tier and fails deletes of chosen "bucket/key" targets.
type FlakyObjectTier struct {
	inner gc.ObjectTier

	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

// NewFlakyObjectTier wraps inner.
func NewFlakyObjectTier(inner gc.ObjectTier) *FlakyObjectTier {
	return &FlakyObjectTier{inner: inner, fail: make(map[string]error)}
}

// FailOn makes deletes of bucket/key return err until Heal is called.
// A nil err means ErrInjected.
func (f *FlakyObjectTier) FailOn(bucket, key string, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[bucket+"/"+key] = err
}

// Heal clears every injected failure.
func (f *FlakyObjectTier) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = make(map[string]error)
}

// Calls returns the "bucket/key" targets passed to DeleteObject, in call order.
func (f *FlakyObjectTier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FlakyObjectTier) DeleteObject(ctx context.Context, bucket, key string) error {
	target := bucket + "/" + key

	f.mu.Lock()
	f.calls = append(f.calls, target)
	err := f.fail[target]
	f.mu.Unlock()

	if err != nil {
		return &gc.GatewayError{Tier: "object", Op: "delete", Target: target, Err: err}
	}
	return f.inner.DeleteObject(ctx, bucket, key)
}

var (
	_ gc.BlockTier  = (*FlakyBlockTier)(nil)
	_ gc.ObjectTier = (*FlakyObjectTier)(nil)
)
