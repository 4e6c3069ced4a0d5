package blocktier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"snapgc/internal/gc"
)

// FileSystemBlockTier stores each snapshot as a file or directory named by its
// primary handle:
//
//	<root>/
//	  <handle>      (snapshot image file or directory)
type FileSystemBlockTier struct {
	name string
	root string
}

// NewFileSystemBlockTier creates a block tier rooted at the given path.
func NewFileSystemBlockTier(name, root string) (*FileSystemBlockTier, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create block tier root: %w", err)
	}
	return &FileSystemBlockTier{name: name, root: root}, nil
}

// DeleteSnapshot removes <root>/<handle>. A handle that is already gone is not an error.
func (f *FileSystemBlockTier) DeleteSnapshot(_ context.Context, snapshotID, handle string) error {
	path, err := f.pathFor(handle)
	if err != nil {
		return &gc.GatewayError{Tier: "block", Op: "delete", Target: snapshotID, Err: err}
	}

	if err := os.RemoveAll(path); err != nil {
		return &gc.GatewayError{Tier: "block", Op: "delete", Target: snapshotID, Err: err}
	}
	return nil
}

// pathFor maps a handle to a path directly under root.
func (f *FileSystemBlockTier) pathFor(handle string) (string, error) {
	if handle == "" || handle == "." || handle == ".." || strings.ContainsAny(handle, `/\`) {
		return "", fmt.Errorf("invalid primary handle %q", handle)
	}
	return filepath.Join(f.root, handle), nil
}

// Compile-time check that FileSystemBlockTier implements gc.BlockTier interface
var _ gc.BlockTier = (*FileSystemBlockTier)(nil)
