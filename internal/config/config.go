// Package config provides configuration loading and structs for the survey server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage backends accepted in StorageConfig.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Storage StorageConfig `yaml:"storage"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Production serves StaticDir and falls back to its index.html for client-side routes.
	Production bool   `yaml:"production"`
	StaticDir  string `yaml:"static_dir"`
}

// DataConfig locates the read-only survey content.
type DataConfig struct {
	Dir               string `yaml:"dir"`
	CatalogFile       string `yaml:"catalog_file"`
	SkipMalformedRows *bool  `yaml:"skip_malformed_rows"`
}

// StorageConfig selects and configures the response store.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	ResponsesDir string `yaml:"responses_dir"`
	DatabasePath string `yaml:"database_path"`
	LockWrites   *bool  `yaml:"lock_writes"`
	AtomicWrites *bool  `yaml:"atomic_writes"`
}

// WatchConfig toggles the content directory watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SkipMalformedRowsOrDefault returns whether malformed catalog rows are skipped; defaults to true when unset.
func (d *DataConfig) SkipMalformedRowsOrDefault() bool {
	return boolOrDefault(d.SkipMalformedRows, true)
}

// CatalogPath returns the catalog file path, resolving a relative CatalogFile against Dir.
func (d *DataConfig) CatalogPath() string {
	if filepath.IsAbs(d.CatalogFile) {
		return d.CatalogFile
	}
	return filepath.Join(d.Dir, d.CatalogFile)
}

// LockWritesOrDefault returns whether per-username write locks are used; defaults to true when unset.
func (s *StorageConfig) LockWritesOrDefault() bool {
	return boolOrDefault(s.LockWrites, true)
}

// AtomicWritesOrDefault returns whether documents are replaced via rename; defaults to true when unset.
func (s *StorageConfig) AtomicWritesOrDefault() bool {
	return boolOrDefault(s.AtomicWrites, true)
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func boolOrDefault(b *bool, def bool) bool {
	if b != nil {
		return *b
	}
	return def
}

// Default returns a config with every default applied and paths relative to the working directory.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Server.StaticDir = expandPath(cfg.Server.StaticDir, configDir)
	cfg.Data.Dir = expandPath(cfg.Data.Dir, configDir)
	cfg.Storage.ResponsesDir = expandPath(cfg.Storage.ResponsesDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and returns Default() otherwise.
// A path that exists but cannot be parsed is still an error.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv applies the PORT and NODE_ENV environment overrides.
// getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if getenv("NODE_ENV") == "production" {
		cfg.Server.Production = true
	}
	return cfg.Validate()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend %q: must be %q or %q", c.Storage.Backend, BackendFile, BackendSQLite)
	}
	if c.Data.CatalogFile == "" {
		return errors.New("data.catalog_file is required")
	}
	return nil
}

// expandPath converts a relative path to one rooted at configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}
