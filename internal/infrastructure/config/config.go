// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for familytree configuration.
	DefaultConfigDir = ".familytree"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultAliasesFile is the default tree aliases file name.
	DefaultAliasesFile = "trees.yaml"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)

	configValidate = validator.New()
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Storage  StorageConfig  `yaml:"storage,omitempty"`
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	Search   SearchConfig   `yaml:"search,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
	Graph    GraphConfig    `yaml:"graph,omitempty"`
}

// StorageConfig selects and configures the tree store.
type StorageConfig struct {
	Driver string       `yaml:"driver,omitempty" validate:"oneof=sqlite badger"`
	SQLite SQLiteConfig `yaml:"sqlite,omitempty"`
	Badger BadgerConfig `yaml:"badger,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite tree store.
type SQLiteConfig struct {
	// Path is the database file. Relative paths are resolved against the
	// config directory. ":memory:" keeps everything in memory.
	Path string `yaml:"path,omitempty" validate:"required"`
}

// BadgerConfig holds configuration for the Badger tree store.
type BadgerConfig struct {
	// Path is the database directory, resolved like SQLiteConfig.Path.
	Path     string `yaml:"path,omitempty"`
	InMemory bool   `yaml:"in_memory,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string `yaml:"base_url,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant vector database.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty" validate:"min=0,max=65535"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SearchConfig toggles member similarity search.
type SearchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty" validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=compact json"`
}

// GraphConfig holds relationship graph settings.
type GraphConfig struct {
	// ValidateOnWrite refuses writes that introduce integrity violations.
	ValidateOnWrite bool `yaml:"validate_on_write"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{Path: "familytree.db"},
			Badger: BadgerConfig{Path: "badger"},
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "familytree_members",
		},
		Server: ServerConfig{Addr: ":5001"},
		Log: LogConfig{
			Level:  "info",
			Format: "compact",
		},
	}
}

// Load loads configuration from the .familytree directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'familytree init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s=%v", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(parts, ", "))
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if level := os.Getenv("FAMILYTREE_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if driver := os.Getenv("FAMILYTREE_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = strings.ToLower(driver)
	}
}

// ConfigDir returns the path to the .familytree config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// AliasesFilePath returns the path to the tree aliases file.
func AliasesFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultAliasesFile)
}

// ResolvePath makes a storage path absolute, relative to the config directory.
func ResolvePath(basePath, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ConfigDir(basePath), path)
}

// Exists checks if a familytree config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}

// SanitizeName converts a tree alias into a lowercase identifier.
func SanitizeName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}
