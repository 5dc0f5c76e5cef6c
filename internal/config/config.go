package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for qv.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Vault      VaultConfig      `toml:"vault"`
	Index      IndexConfig      `toml:"index"`
	Database   DatabaseConfig   `toml:"database"`
	Encryption EncryptionConfig `toml:"encryption"`
	Retention  RetentionConfig  `toml:"retention"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// VaultConfig represents configuration for the quarantine vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "filesystem"
	Dir  string `toml:"dir,omitempty"`
}

// IndexConfig represents configuration for the metadata index.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type IndexConfig struct {
	Type string `toml:"type"`           // "json" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=json
}

// DatabaseConfig represents configuration for the operation journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// EncryptionConfig holds paths to the age key pair used to seal exports.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	Armor          bool   `toml:"armor"` // ASCII-armor sealed exports
}

// RetentionConfig controls age-based cleanup.
type RetentionConfig struct {
	CleanupDays int `toml:"cleanup_days"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	// Exclude lists glob patterns for paths that ingestion never quarantines.
	Exclude []string `toml:"exclude"`
}

// MetricsConfig holds settings for the node-exporter textfile.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path,omitempty"`
}

// DefaultCleanupDays is the retention used when none is configured.
const DefaultCleanupDays = 30

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Vault: VaultConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "quarantine"),
		},
		Index: IndexConfig{
			Type: "json",
			Path: filepath.Join(baseDir, "quarantine_metadata.json"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "qv.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "qv.key"),
		},
		Retention: RetentionConfig{CleanupDays: DefaultCleanupDays},
	}
}

// CleanupDays returns the configured retention, falling back to
// DefaultCleanupDays when unset.
func (c *Config) CleanupDays() int {
	if c.Retention.CleanupDays <= 0 {
		return DefaultCleanupDays
	}
	return c.Retention.CleanupDays
}

// Validate checks the settings that the factories cannot check on their own.
// The index must live outside the vault so vault listings never see it.
func (c *Config) Validate() error {
	if c.Vault.Type == "filesystem" && c.Index.Type == "json" {
		if c.Vault.Dir == "" {
			return fmt.Errorf("vault.dir must be set")
		}
		if c.Index.Path == "" {
			return fmt.Errorf("index.path must be set")
		}
		vaultDir := filepath.Clean(c.Vault.Dir)
		indexPath := filepath.Clean(c.Index.Path)
		if strings.HasPrefix(indexPath, vaultDir+string(filepath.Separator)) {
			return fmt.Errorf("index.path %s must not be inside vault.dir %s", c.Index.Path, c.Vault.Dir)
		}
	}
	if c.Retention.CleanupDays < 0 {
		return fmt.Errorf("retention.cleanup_days must not be negative, got %d", c.Retention.CleanupDays)
	}
	return nil
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

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
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
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
