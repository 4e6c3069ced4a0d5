package blocktier

import (
	"fmt"

	"snapgc/internal/config"
	"snapgc/internal/gc"
)

// NewBlockTierFromConfig creates a BlockTier implementation based on the config type.
func NewBlockTierFromConfig(cfg config.BlockTierConfig) (gc.BlockTier, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBlockTier(cfg.Name), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem block tier requires fs_root to be set")
		}
		return NewFileSystemBlockTier(cfg.Name, cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown block tier type: %s", cfg.Type)
	}
}
