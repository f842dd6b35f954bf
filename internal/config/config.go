package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Modes for route selection. Exactly one route set is mounted per process.
const (
	ModePrivate = "private"
	ModePublic  = "public"
)

// Config represents the main configuration for mediad.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	MediaRoot  string `toml:"media_root"`
	Mode       string `toml:"mode"`

	// Database is the share store location. Sharing is enabled iff set.
	Database string `toml:"database,omitempty"`

	// DatabaseType selects the store backend: "sqlite" (default) or
	// "memory".
	DatabaseType string `toml:"database_type,omitempty"`

	// ShareDefaultTTLSeconds is the default share lifetime; required and
	// positive whenever Database is set.
	ShareDefaultTTLSeconds int64 `toml:"share_default_ttl_seconds,omitempty"`

	// PublicBaseURL, when set, makes share links absolute.
	PublicBaseURL string `toml:"public_base_url,omitempty"`
}

// NewConfig creates a Config for the given media root with defaults
// applied.
func NewConfig(mediaRoot string) *Config {
	cfg := &Config{MediaRoot: mediaRoot}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:8080"
	}
	if c.Mode == "" {
		c.Mode = ModePrivate
	}
	if c.DatabaseType == "" {
		c.DatabaseType = "sqlite"
	}
}

// SharingEnabled reports whether a share store location is configured.
func (c *Config) SharingEnabled() bool { return c.Database != "" }

// DefaultTTL returns the default share lifetime as a duration.
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.ShareDefaultTTLSeconds) * time.Second
}

// Validate checks the startup invariants. A failure here is fatal: the
// process must not begin serving with an invalid configuration.
func (c *Config) Validate() error {
	if c.MediaRoot == "" {
		return fmt.Errorf("media_root is required")
	}
	info, err := os.Stat(c.MediaRoot)
	if err != nil {
		return fmt.Errorf("media_root does not exist: %s", c.MediaRoot)
	}
	if !info.IsDir() {
		return fmt.Errorf("media_root is not a directory: %s", c.MediaRoot)
	}
	if c.Mode != ModePrivate && c.Mode != ModePublic {
		return fmt.Errorf("mode must be %q or %q, got %q", ModePrivate, ModePublic, c.Mode)
	}
	if c.Mode == ModePublic && !c.SharingEnabled() {
		return fmt.Errorf("database is required when mode is public")
	}
	if c.SharingEnabled() && c.ShareDefaultTTLSeconds <= 0 {
		return fmt.Errorf("share_default_ttl_seconds required when database is set")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and applies defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
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
	return cfg, nil
}

// writeToFile writes a Config to the specified file path, creating parent
// directories as needed.
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

// Init initializes a new config file at the specified path. It refuses to
// overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
