package vault

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"permadeploy/internal/config"
	"permadeploy/internal/pd"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
		wantNil bool
	}{
		{
			name:    "disabled",
			cfg:     config.VaultConfig{},
			wantNil: true,
		},
		{
			name: "memory vault",
			cfg:  config.VaultConfig{Type: "memory", Name: "test-memory"},
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.VaultConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
			wantNil: true,
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
			wantNil: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.VaultConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(context.Background(), tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Errorf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && !errors.Is(err, pd.ErrConfiguration) {
				t.Errorf("NewVaultFromConfig() error = %v, want ErrConfiguration", err)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("NewVaultFromConfig() returned nil = %v, wantNil %v", got == nil, tt.wantNil)
			}
			if got != nil {
				if err := got.ValidateSetup(context.Background()); err != nil {
					t.Errorf("ValidateSetup() error = %v", err)
				}
			}
		})
	}

	t.Run("filesystem vault", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")
		got, err := NewVaultFromConfig(context.Background(), config.VaultConfig{Type: "filesystem", FSVaultRoot: root})
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if err := got.ValidateSetup(context.Background()); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutExport(t *testing.T) {
	tests := []struct {
		name    string
		export  string
		data    string
		size    int64
		wantErr bool
	}{
		{name: "store export", export: "deployments-1.json", data: `{"version":2}`, size: 13},
		{name: "size mismatch", export: "deployments-2.json", data: "hello", size: 100, wantErr: true},
		{name: "path traversal", export: "../escape.json", data: "x", size: 1, wantErr: true},
		{name: "hidden name", export: ".tmp-x", data: "x", size: 1, wantErr: true},
		{name: "empty name", export: "", data: "x", size: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			v, err := NewFileSystemVault("test", root)
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.PutExport(context.Background(), tt.export, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutExport() error = %v, wantErr %v", err, tt.wantErr)
			}

			entries, _ := os.ReadDir(filepath.Join(root, "exports"))
			if tt.wantErr {
				if len(entries) != 0 {
					t.Errorf("export dir has %d entries after failure, want 0", len(entries))
				}
				return
			}
			got, err := os.ReadFile(filepath.Join(root, "exports", tt.export))
			if err != nil {
				t.Fatalf("reading export: %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("export = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	root := t.TempDir()
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	if err := v.ValidateSetup(context.Background()); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	os.RemoveAll(filepath.Join(root, "exports"))
	if err := v.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() expected error after export dir removed")
	}
}

func TestMemoryVault(t *testing.T) {
	v := NewMemoryVault("mem")
	ctx := context.Background()

	if err := v.PutExport(ctx, "b.json", strings.NewReader("bb"), 2); err != nil {
		t.Fatalf("PutExport() error = %v", err)
	}
	if err := v.PutExport(ctx, "a.json", strings.NewReader("a"), 1); err != nil {
		t.Fatalf("PutExport() error = %v", err)
	}
	if err := v.PutExport(ctx, "c.json", strings.NewReader("c"), 5); err == nil {
		t.Error("PutExport() expected size mismatch error")
	}

	if got, ok := v.Export("b.json"); !ok || string(got) != "bb" {
		t.Errorf("Export(b.json) = %q, %v", got, ok)
	}
	if names := v.Names(); len(names) != 2 || names[0] != "a.json" {
		t.Errorf("Names() = %v", names)
	}
}

type s3Request struct {
	method string
	path   string
	body   string
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, func() []s3Request) {
	t.Helper()
	var mu sync.Mutex
	var reqs []s3Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, s3Request{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []s3Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]s3Request(nil), reqs...)
	}
}

func s3Config(endpoint string) config.VaultConfig {
	return config.VaultConfig{
		Type:              "s3",
		Name:              "s3-test",
		S3Bucket:          "exports-bucket",
		S3Prefix:          "pd",
		S3Region:          "us-east-1",
		S3Endpoint:        endpoint,
		S3AccessKeyID:     "AKIDTEST",
		S3SecretAccessKey: "secret",
		S3UsePathStyle:    true,
	}
}

func TestS3Vault_PutExport(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusOK)
	ctx := context.Background()

	v, err := NewS3Vault(ctx, s3Config(srv.URL))
	if err != nil {
		t.Fatalf("NewS3Vault() error = %v", err)
	}

	data := `{"version":2,"deployments":[]}`
	if err := v.PutExport(ctx, "deployments-x.json", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutExport() error = %v", err)
	}

	var put *s3Request
	for _, r := range requests() {
		if r.method == http.MethodPut {
			r := r
			put = &r
		}
	}
	if put == nil {
		t.Fatal("no PUT request reached the server")
	}
	if put.path != "/exports-bucket/pd/exports/deployments-x.json" {
		t.Errorf("PUT path = %s", put.path)
	}
	if !strings.Contains(put.body, data) {
		t.Errorf("PUT body = %q, want it to carry the export", put.body)
	}

	if err := v.PutExport(ctx, "../x.json", strings.NewReader("x"), 1); !errors.Is(err, pd.ErrValidation) {
		t.Errorf("PutExport(bad name) error = %v, want ErrValidation", err)
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("bucket reachable", func(t *testing.T) {
		srv, requests := newFakeS3(t, http.StatusOK)
		v, err := NewS3Vault(ctx, s3Config(srv.URL))
		if err != nil {
			t.Fatalf("NewS3Vault() error = %v", err)
		}
		if err := v.ValidateSetup(ctx); err != nil {
			t.Fatalf("ValidateSetup() error = %v", err)
		}
		reqs := requests()
		if len(reqs) == 0 || reqs[0].method != http.MethodHead || reqs[0].path != "/exports-bucket" {
			t.Errorf("requests = %+v, want HEAD /exports-bucket", reqs)
		}
	})

	t.Run("bucket missing", func(t *testing.T) {
		srv, _ := newFakeS3(t, http.StatusNotFound)
		v, err := NewS3Vault(ctx, s3Config(srv.URL))
		if err != nil {
			t.Fatalf("NewS3Vault() error = %v", err)
		}
		if err := v.ValidateSetup(ctx); err == nil {
			t.Error("ValidateSetup() expected error for missing bucket")
		}
	})
}
