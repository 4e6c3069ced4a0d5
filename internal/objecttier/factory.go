package objecttier

import (
	"context"
	"fmt"

	"snapgc/internal/config"
	"snapgc/internal/gc"
)

// NewObjectTierFromConfig creates an ObjectTier implementation based on the config type.
func NewObjectTierFromConfig(ctx context.Context, cfg config.ObjectTierConfig) (gc.ObjectTier, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryObjectTier(cfg.Name), nil
	case "s3":
		return NewS3ObjectTierFromConfig(ctx, cfg.Name, S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		})
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem object tier requires fs_root to be set")
		}
		return NewFileSystemObjectTier(cfg.Name, cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown object tier type: %s", cfg.Type)
	}
}
