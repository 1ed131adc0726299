package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for minisite.
type Config struct {
	SiteID     string           `toml:"site_id"`
	BaseDir    string           `toml:"base_dir"`
	BaseURL    string           `toml:"base_url"`
	LogDir     string           `toml:"log_dir"`
	Storage    StorageConfig    `toml:"storage"`
	Validation ValidationConfig `toml:"validation"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Database   DatabaseConfig   `toml:"database"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Server     ServerConfig     `toml:"server"`
}

// StorageConfig maps the public storage scheme onto a local directory and
// the URL path that directory is served under.
type StorageConfig struct {
	Scheme    string `toml:"scheme"`     // defaults to "public"
	PublicDir string `toml:"public_dir"` // local directory backing public://
	PublicURL string `toml:"public_url"` // root-relative URL prefix, e.g. "/files"
}

// ValidationConfig controls which archives are accepted.
// Zero values fall back to the built-in defaults.
type ValidationConfig struct {
	AllowedExtensions string   `toml:"allowed_extensions,omitempty"` // space and/or comma separated
	MaxPathLength     int      `toml:"max_path_length,omitempty"`
	StrayRootDirs     []string `toml:"stray_root_dirs,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string   `toml:"type"` // "age" (default), "test" or "none"
	PublicKeyPath  string   `toml:"public_key_path"`
	PrivateKeyPath string   `toml:"private_key_path"`
	Recipients     []string `toml:"recipients,omitempty"` // extra age public keys archives are encrypted to
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore     []string `toml:"ignore"`                // patterns of extracted files never registered as assets
	IgnoreFile string   `toml:"ignore_file,omitempty"` // file with more patterns, one per line
}

// VaultConfig represents configuration for the archive vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores; enables path-style addressing
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ServerConfig configures `minisite serve`.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout,omitempty"`
	WriteTimeout Duration `toml:"write_timeout,omitempty"`
}

// NewConfig creates a new Config with the provided values and defaults
// rooted at baseDir.
func NewConfig(siteID, baseDir string) *Config {
	return &Config{
		SiteID:  siteID,
		BaseDir: baseDir,
		BaseURL: "http://localhost:8080",
		LogDir:  filepath.Join(baseDir, "log"),
		Storage: StorageConfig{
			Scheme:    "public",
			PublicDir: filepath.Join(baseDir, "files"),
			PublicURL: "/files",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "minisite.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "minisite.key"),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
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

	// The file may carry S3 credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
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
