package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"permadeploy/internal/pd"
)

// Config represents the main configuration for permadeploy.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Network    NetworkConfig    `toml:"network"`
	Upload     UploadConfig     `toml:"upload"`
	Cost       CostConfig       `toml:"cost"`
	History    HistoryConfig    `toml:"history"`
	Identity   IdentityConfig   `toml:"identity"`
	Secrets    SecretsConfig    `toml:"secrets"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Registry   RegistryConfig   `toml:"registry"`
	Vault      VaultConfig      `toml:"vault"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// NetworkConfig holds gateway endpoints and request limits.
type NetworkConfig struct {
	GatewayURL        string `toml:"gateway_url"`
	GraphQLURL        string `toml:"graphql_url,omitempty"` // defaults to <gateway_url>/graphql
	PriceURL          string `toml:"price_url,omitempty"`   // empty disables fiat estimates
	PriceAsset        string `toml:"price_asset,omitempty"`
	Currency          string `toml:"currency"`
	RequestTimeout    int    `toml:"request_timeout_seconds"`
	StatusRetries     int    `toml:"status_retries"`
	VerifyConcurrency int    `toml:"verify_concurrency"`
	VerifyTimeout     int    `toml:"verify_timeout_seconds"`
}

// UploadConfig configures the external upload tools.
type UploadConfig struct {
	Tool            string   `toml:"tool"`          // primary bundler CLI, "arkb"
	FallbackTool    string   `toml:"fallback_tool"` // SDK CLI used for directories when the primary fails
	FallbackNetwork string   `toml:"fallback_network"`
	FallbackToken   string   `toml:"fallback_token"`
	IndexFile       string   `toml:"index_file"`
	NoBundle        bool     `toml:"no_bundle"`
	DirTimeout      int      `toml:"dir_timeout_seconds"`
	FileTimeout     int      `toml:"file_timeout_seconds"`
	AppName         string   `toml:"app_name"`
	ExtraTags       []pd.Tag `toml:"extra_tags,omitempty"`
	TempDir         string   `toml:"temp_dir,omitempty"`
}

// CostConfig holds the fee model used for estimates.
type CostConfig struct {
	WinstonPerMiB int64 `toml:"winston_per_mib"`
	MarginPercent int   `toml:"margin_percent"`
}

// HistoryConfig locates the deployment history file.
type HistoryConfig struct {
	Path       string `toml:"path"`
	MaxRecords int    `toml:"max_records"`
	ExportDir  string `toml:"export_dir,omitempty"`
}

// IdentityConfig controls where accounts live and where key files are
// materialized for the upload tools.
type IdentityConfig struct {
	Service string `toml:"service"`
	KeyDir  string `toml:"key_dir"`
}

// SecretsConfig represents configuration for the secret store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SecretsConfig struct {
	Type         string `toml:"type"` // "age" (default) or "memory"
	Path         string `toml:"path,omitempty"`
	IdentityPath string `toml:"identity_path,omitempty"` // unused when a passphrase is supplied
}

// CatalogConfig represents configuration for the resource catalog.
type CatalogConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// RegistryConfig locates the legacy archive registry. An empty path disables it.
type RegistryConfig struct {
	Path string `toml:"path,omitempty"`
}

// VaultConfig represents configuration for the export vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "", "memory", "s3", or "filesystem"
	Name string `toml:"name,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	cfg := &Config{BaseDir: baseDir}
	return cfg.WithDefaults()
}

// WithDefaults fills zero values in place and returns cfg.
func (cfg *Config) WithDefaults() *Config {
	setString := func(p *string, v string) {
		if *p == "" {
			*p = v
		}
	}
	setInt := func(p *int, v int) {
		if *p <= 0 {
			*p = v
		}
	}

	if cfg.BaseDir != "" {
		setString(&cfg.LogDir, filepath.Join(cfg.BaseDir, "log"))
		setString(&cfg.History.Path, filepath.Join(cfg.BaseDir, "deployments.json"))
		setString(&cfg.Identity.KeyDir, filepath.Join(cfg.BaseDir, "keys"))
		setString(&cfg.Catalog.DataDir, filepath.Join(cfg.BaseDir, "db"))
		if cfg.Secrets.Type == "" || cfg.Secrets.Type == "age" {
			setString(&cfg.Secrets.Path, filepath.Join(cfg.BaseDir, "secrets.age"))
			setString(&cfg.Secrets.IdentityPath, filepath.Join(cfg.BaseDir, "keys", "secrets.key"))
		}
	}

	setString(&cfg.Network.GatewayURL, "https://arweave.net")
	setString(&cfg.Network.Currency, "usd")
	setInt(&cfg.Network.RequestTimeout, 30)
	setInt(&cfg.Network.StatusRetries, 3)
	setInt(&cfg.Network.VerifyConcurrency, 8)
	setInt(&cfg.Network.VerifyTimeout, 30)

	setString(&cfg.Upload.Tool, "arkb")
	setString(&cfg.Upload.FallbackTool, "irys")
	setString(&cfg.Upload.FallbackNetwork, "mainnet")
	setString(&cfg.Upload.FallbackToken, "arweave")
	setString(&cfg.Upload.IndexFile, "index.html")
	setInt(&cfg.Upload.DirTimeout, 600)
	setInt(&cfg.Upload.FileTimeout, 120)
	setString(&cfg.Upload.AppName, "permadeploy")

	if cfg.Cost.WinstonPerMiB <= 0 {
		cfg.Cost.WinstonPerMiB = 2_500_000_000
	}
	if cfg.Cost.MarginPercent < 0 {
		cfg.Cost.MarginPercent = 0
	}

	setInt(&cfg.History.MaxRecords, 100)
	setString(&cfg.Identity.Service, "permadeploy")
	setString(&cfg.Catalog.Type, "sqlite")
	setString(&cfg.Secrets.Type, "age")
	return cfg
}

// Seconds converts a seconds setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
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

// ReadFromFile reads a Config from the specified file path and fills defaults.
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
	return cfg.WithDefaults(), nil
}

func writeToFile(path string, cfg *Config) error {
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
