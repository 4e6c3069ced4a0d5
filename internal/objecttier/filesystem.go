package objecttier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"snapgc/internal/gc"
)

// FileSystemObjectTier is a filesystem-backed object tier. Buckets are
// directories and keys are paths within them:
//
//	<root>/
//	  <bucket>/
//	    <key>      (keys may contain '/')
type FileSystemObjectTier struct {
	name string
	root string
}

// NewFileSystemObjectTier creates a filesystem object tier rooted at the given path.
func NewFileSystemObjectTier(name, root string) (*FileSystemObjectTier, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create object tier root: %w", err)
	}
	return &FileSystemObjectTier{name: name, root: root}, nil
}

// DeleteObject removes <root>/<bucket>/<key>. Missing objects are not an error.
func (f *FileSystemObjectTier) DeleteObject(_ context.Context, bucket, key string) error {
	path, err := f.pathFor(bucket, key)
	if err != nil {
		return &gc.GatewayError{Tier: "object", Op: "delete", Target: bucket + "/" + key, Err: err}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &gc.GatewayError{Tier: "object", Op: "delete", Target: bucket + "/" + key, Err: err}
	}
	return nil
}

// pathFor maps bucket/key to a path, refusing anything that escapes the bucket directory.
func (f *FileSystemObjectTier) pathFor(bucket, key string) (string, error) {
	if bucket == "" || bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("invalid bucket name %q", bucket)
	}

	bucketDir := filepath.Join(f.root, bucket)
	path := filepath.Join(bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes bucket %q", key, bucket)
	}
	return path, nil
}

// Compile-time check that FileSystemObjectTier implements gc.ObjectTier interface
var _ gc.ObjectTier = (*FileSystemObjectTier)(nil)
