package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultInterval is how often the daemon runs a reconciliation cycle.
const DefaultInterval = 30 * time.Second

// Config represents the main configuration for snapgc.
type Config struct {
	Zone       string           `toml:"zone"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Reconciler ReconcilerConfig `toml:"reconciler"`
	Database   DatabaseConfig   `toml:"database"`
	BlockTier  BlockTierConfig  `toml:"block_tier"`
	ObjectTier ObjectTierConfig `toml:"object_tier"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// ReconcilerConfig holds scheduling settings for the daemon.
type ReconcilerConfig struct {
	Interval time.Duration `toml:"interval"`
}

// DatabaseConfig represents configuration for the snapshot metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BlockTierConfig represents configuration for the primary (block) tier.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlockTierConfig struct {
	Type string `toml:"type"` // "memory" or "filesystem"
	Name string `toml:"name"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// ObjectTierConfig represents configuration for the secondary (object) tier.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ObjectTierConfig struct {
	Type string `toml:"type"` // "memory", "filesystem" or "s3"
	Name string `toml:"name"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3ForcePathStyle  bool   `toml:"s3_force_path_style,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint served by the daemon.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr,omitempty"` // empty disables the endpoint
}

// NewConfig creates a new Config with the provided values and local defaults.
func NewConfig(zone, baseDir string) *Config {
	return &Config{
		Zone:       zone,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		LogLevel:   "info",
		Reconciler: ReconcilerConfig{Interval: DefaultInterval},
		Database:   DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		BlockTier:  BlockTierConfig{Type: "filesystem", Name: "local", FSRoot: filepath.Join(baseDir, "block")},
		ObjectTier: ObjectTierConfig{Type: "filesystem", Name: "local", FSRoot: filepath.Join(baseDir, "object")},
	}
}

// Validate checks backend types and scheduling settings.
func (c *Config) Validate() error {
	if c.Reconciler.Interval < 0 {
		return fmt.Errorf("reconciler interval must not be negative, got %s", c.Reconciler.Interval)
	}

	switch c.Database.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}

	switch c.BlockTier.Type {
	case "memory", "filesystem":
	default:
		return fmt.Errorf("unknown block tier type: %q", c.BlockTier.Type)
	}

	switch c.ObjectTier.Type {
	case "memory", "filesystem", "s3":
	default:
		return fmt.Errorf("unknown object tier type: %q", c.ObjectTier.Type)
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}

	return nil
}

// Interval returns the configured cycle interval, or DefaultInterval when unset.
func (c *Config) Interval() time.Duration {
	if c.Reconciler.Interval == 0 {
		return DefaultInterval
	}
	return c.Reconciler.Interval
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
