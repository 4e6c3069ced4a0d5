package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"snapgc/internal/config"
)

// Defaults holds the locations and settings a fresh install starts from.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
	DataDir    string
	BlockRoot  string
	ObjectRoot string
	Interval   time.Duration
	Zone       string // empty when neither SNAPGC_ZONE nor the hostname is available
}

// GetDefaults resolves defaults from the environment.
// Environment variables:
//   - SNAPGC_CONFIG_PATH: config file location (default: ~/.config/snapgc.toml)
//   - SNAPGC_HOME: base directory for the database, tiers and logs (default: ~/.local/share/snapgc)
//   - SNAPGC_ZONE: zone this reconciler runs in (default: hostname)
func GetDefaults() (*Defaults, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	cfg := config.NewConfig("", baseDir)
	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    cfg.BaseDir,
		LogDir:     cfg.LogDir,
		DataDir:    cfg.Database.DataDir,
		BlockRoot:  cfg.BlockTier.FSRoot,
		ObjectRoot: cfg.ObjectTier.FSRoot,
		Interval:   cfg.Interval(),
		Zone:       getZone(),
	}, nil
}

// Config builds the config written by "config init". A non-empty zone
// overrides the resolved default.
func (d *Defaults) Config(zone string) (*config.Config, error) {
	if zone == "" {
		zone = d.Zone
	}
	if zone == "" {
		return nil, errors.New("no zone given: pass --zone or set SNAPGC_ZONE")
	}
	return config.NewConfig(zone, d.BaseDir), nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("SNAPGC_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "snapgc.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("SNAPGC_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "snapgc"), nil
}

func getZone() string {
	if zone := os.Getenv("SNAPGC_ZONE"); zone != "" {
		return zone
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}
