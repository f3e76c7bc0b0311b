package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"permadeploy/internal/pd"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/permadeploy",
		LogDir:  "/home/user/.local/share/permadeploy/log",
		Network: NetworkConfig{GatewayURL: "https://g8way.io", Currency: "eur", RequestTimeout: 10},
		Upload: UploadConfig{
			Tool:      "/opt/arkb",
			IndexFile: "home.html",
			NoBundle:  true,
			ExtraTags: []pd.Tag{{Name: "Env", Value: "prod"}},
		},
		Cost:    CostConfig{WinstonPerMiB: 42, MarginPercent: 5},
		Secrets: SecretsConfig{Type: "memory"},
		Vault: VaultConfig{
			Type:           "s3",
			S3Bucket:       "exports",
			S3Endpoint:     "http://localhost:9000",
			S3UsePathStyle: true,
		},
		Filesystem: FilesystemConfig{Ignore: []string{"*.log", ".git"}},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Network.GatewayURL != "https://g8way.io" || got.Network.Currency != "eur" {
		t.Errorf("Network = %+v", got.Network)
	}
	if !got.Upload.NoBundle || got.Upload.IndexFile != "home.html" {
		t.Errorf("Upload = %+v", got.Upload)
	}
	if len(got.Upload.ExtraTags) != 1 || got.Upload.ExtraTags[0] != (pd.Tag{Name: "Env", Value: "prod"}) {
		t.Errorf("Upload.ExtraTags = %+v", got.Upload.ExtraTags)
	}
	if got.Cost.WinstonPerMiB != 42 || got.Cost.MarginPercent != 5 {
		t.Errorf("Cost = %+v", got.Cost)
	}
	if got.Vault.Type != "s3" || !got.Vault.S3UsePathStyle || got.Vault.S3Endpoint != "http://localhost:9000" {
		t.Errorf("Vault = %+v", got.Vault)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/pd")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"LogDir", cfg.LogDir, "/data/pd/log"},
		{"History.Path", cfg.History.Path, "/data/pd/deployments.json"},
		{"Identity.KeyDir", cfg.Identity.KeyDir, "/data/pd/keys"},
		{"Identity.Service", cfg.Identity.Service, "permadeploy"},
		{"Secrets.Type", cfg.Secrets.Type, "age"},
		{"Secrets.Path", cfg.Secrets.Path, "/data/pd/secrets.age"},
		{"Secrets.IdentityPath", cfg.Secrets.IdentityPath, "/data/pd/keys/secrets.key"},
		{"Catalog.Type", cfg.Catalog.Type, "sqlite"},
		{"Catalog.DataDir", cfg.Catalog.DataDir, "/data/pd/db"},
		{"Network.GatewayURL", cfg.Network.GatewayURL, "https://arweave.net"},
		{"Upload.Tool", cfg.Upload.Tool, "arkb"},
		{"Upload.IndexFile", cfg.Upload.IndexFile, "index.html"},
		{"Upload.AppName", cfg.Upload.AppName, "permadeploy"},
		{"Vault.Type", cfg.Vault.Type, ""},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if cfg.Cost.WinstonPerMiB != 2_500_000_000 {
		t.Errorf("Cost.WinstonPerMiB = %d", cfg.Cost.WinstonPerMiB)
	}
	if cfg.History.MaxRecords != 100 {
		t.Errorf("History.MaxRecords = %d, want 100", cfg.History.MaxRecords)
	}
}

func TestWithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := (&Config{
		BaseDir: "/data/pd",
		History: HistoryConfig{Path: "/elsewhere/h.json", MaxRecords: 7},
		Secrets: SecretsConfig{Type: "memory"},
		Cost:    CostConfig{MarginPercent: 0},
	}).WithDefaults()

	if cfg.History.Path != "/elsewhere/h.json" || cfg.History.MaxRecords != 7 {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Secrets.Path != "" {
		t.Errorf("memory secrets got a path: %q", cfg.Secrets.Path)
	}
	if cfg.Cost.MarginPercent != 0 {
		t.Errorf("MarginPercent = %d, want 0 preserved", cfg.Cost.MarginPercent)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "permadeploy.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config mode = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "permadeploy.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "permadeploy.toml")
		cfg := NewConfig(dir)
		cfg.Catalog = CatalogConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Catalog.Type != "memory" {
			t.Errorf("Catalog.Type = %q, want memory", got.Catalog.Type)
		}
	})

	t.Run("fills defaults for sparse file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "permadeploy.toml")
		content := "base_dir = " + `"` + dir + `"` + "\n\n[upload]\nindex_file = \"main.html\"\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Upload.IndexFile != "main.html" {
			t.Errorf("IndexFile = %q", got.Upload.IndexFile)
		}
		if got.Upload.Tool != "arkb" || !strings.HasPrefix(got.History.Path, dir) {
			t.Errorf("defaults not applied: tool=%q history=%q", got.Upload.Tool, got.History.Path)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/permadeploy.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
