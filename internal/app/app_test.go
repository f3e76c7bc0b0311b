package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"permadeploy/internal/config"
	"permadeploy/internal/pd"
	"permadeploy/internal/testutil"
)

const testTxID = "cG7Hdi_iTQPoEYgQJFqJ8NMpN4KoZ-vH_j7pG4iP7NI"

type appFixture struct {
	app    *PDApp
	runner *testutil.FakeRunner
	dir    string
}

// newTestApp wires a PDApp against in-memory stores, a fake upload tool and
// a gateway that reports balance for every address.
func newTestApp(t *testing.T, balance string) *appFixture {
	t.Helper()
	dir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/wallet/") && strings.HasSuffix(r.URL.Path, "/balance") {
			w.Write([]byte(balance))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.NewConfig(dir)
	cfg.Secrets = config.SecretsConfig{Type: "memory"}
	cfg.Catalog = config.CatalogConfig{Type: "memory"}
	cfg.Registry.Path = filepath.Join(dir, "archive.json")
	cfg.Network.GatewayURL = srv.URL
	cfg.Upload.FallbackTool = ""
	cfg.Upload.TempDir = t.TempDir()

	runner := &testutil.FakeRunner{Respond: func(inv testutil.Invocation) (string, error) {
		data, _ := json.Marshal(map[string]string{"id": testTxID})
		return string(data), nil
	}}

	a, err := NewPDApp(cfg, "Test", Options{
		Runner: runner,
		Clock:  testutil.FixedClock(),
		IDs:    &testutil.StubIDGenerator{},
	})
	if err != nil {
		t.Fatalf("NewPDApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return &appFixture{app: a, runner: runner, dir: dir}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewPDApp_WritesLog(t *testing.T) {
	f := newTestApp(t, "0")
	if err := f.app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(f.dir, "log", "permadeploy.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "operation finished\toperation=Test") {
		t.Errorf("log = %q, want operation summary", data)
	}
}

func TestNewPDApp_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig(dir)
	cfg.Secrets = config.SecretsConfig{Type: "memory"}
	cfg.Catalog = config.CatalogConfig{Type: "postgres"}

	_, err := NewPDApp(cfg, "Test", Options{Clock: testutil.FixedClock()})
	if !errors.Is(err, pd.ErrConfiguration) {
		t.Errorf("NewPDApp() error = %v, want ErrConfiguration", err)
	}
}

func TestPDApp_Accounts(t *testing.T) {
	f := newTestApp(t, "1500000000000")

	if _, err := f.app.ActiveAccount(); !errors.Is(err, pd.ErrNoActiveAccount) {
		t.Fatalf("ActiveAccount() error = %v, want ErrNoActiveAccount", err)
	}
	accounts, active, err := f.app.ListAccounts()
	if err != nil || len(accounts) != 0 || active != "" {
		t.Fatalf("ListAccounts() = %v, %q, %v; want empty", accounts, active, err)
	}

	first, err := f.app.AddAccount(testutil.NewJWK(t), "main")
	if err != nil {
		t.Fatalf("AddAccount() error = %v", err)
	}
	second, err := f.app.AddAccount(testutil.NewJWK(t), "")
	if err != nil {
		t.Fatalf("AddAccount() error = %v", err)
	}

	accounts, active, err = f.app.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(accounts) != 2 || active != first.ID {
		t.Errorf("ListAccounts() = %d accounts, active %q; want 2, %q", len(accounts), active, first.ID)
	}

	if _, err := f.app.UseAccount(second.ID); err != nil {
		t.Fatalf("UseAccount() error = %v", err)
	}
	renamed, err := f.app.RenameAccount(second.ID, "deploy")
	if err != nil || renamed.Nickname != "deploy" {
		t.Errorf("RenameAccount() = %+v, %v", renamed, err)
	}

	bal, err := f.app.Balance(context.Background(), "")
	if err != nil || bal != "1.5" {
		t.Errorf("Balance() = %q, %v; want 1.5", bal, err)
	}

	if err := f.app.RemoveAccount(first.ID); err != nil {
		t.Fatalf("RemoveAccount() error = %v", err)
	}
	if err := f.app.RemoveAccount(first.ID); !errors.Is(err, pd.ErrNotFound) {
		t.Errorf("RemoveAccount(again) error = %v, want ErrNotFound", err)
	}
	if !f.app.op.Failed() {
		t.Error("operation not marked failed after an error")
	}
}

func TestPDApp_Estimate(t *testing.T) {
	f := newTestApp(t, "0")
	site := filepath.Join(f.dir, "site")
	writeFile(t, filepath.Join(site, "index.html"), "<h1>hi</h1>")
	writeFile(t, filepath.Join(site, "about.html"), "<p>about</p>")

	summary, est, err := f.app.Estimate(context.Background(), site)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if summary.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", summary.FileCount)
	}
	// One 256 KiB chunk at the default rate.
	if est.Native != "0.000625" {
		t.Errorf("Native = %q, want 0.000625", est.Native)
	}
	if est.Fiat != nil {
		t.Errorf("Fiat = %v, want nil without a price feed", *est.Fiat)
	}

	if _, _, err := f.app.Estimate(context.Background(), filepath.Join(f.dir, "missing")); err == nil {
		t.Error("Estimate(missing) error = nil")
	}
}

func TestPDApp_CheckAffordability(t *testing.T) {
	tests := []struct {
		name       string
		balance    string
		addAccount bool
		want       *Affordability
	}{
		{name: "enough funds", balance: "1500000000000", addAccount: true, want: &Affordability{Balance: "1.5", Affordable: true}},
		{name: "insufficient funds", balance: "1000", addAccount: true, want: &Affordability{Balance: "0.000000001", Affordable: false}},
		{name: "no account", balance: "1000", addAccount: false, want: nil},
		{name: "unreadable balance", balance: "n/a", addAccount: true, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestApp(t, tt.balance)
			if tt.addAccount {
				if _, err := f.app.AddAccount(testutil.NewJWK(t), ""); err != nil {
					t.Fatalf("AddAccount() error = %v", err)
				}
			}

			got := f.app.CheckAffordability(context.Background(), pd.Cost{Native: "0.000625"})
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("CheckAffordability() = %+v, want nil", got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("CheckAffordability() = %+v, want %+v", got, tt.want)
			}
			if f.app.op.Failed() {
				t.Error("affordability check failed the operation")
			}
		})
	}
}

func TestPDApp_PublishFileAndStatus(t *testing.T) {
	f := newTestApp(t, "0")
	if _, err := f.app.AddAccount(testutil.NewJWK(t), ""); err != nil {
		t.Fatalf("AddAccount() error = %v", err)
	}
	const id = "5b0f3c1e-2a4d-4c8e-9f6b-1d2e3f4a5b6c"
	post := writeFile(t, filepath.Join(f.dir, "notes", "post.md"),
		"---\nuuid: "+id+"\ntitle: Hello\ntype: note\n---\n# Hello\n")

	up, err := f.app.PublishFile(context.Background(), post)
	if err != nil {
		t.Fatalf("PublishFile() error = %v", err)
	}
	if up.Resource.ID != id || up.Result.TransactionID != testTxID {
		t.Errorf("PublishFile() = %+v", up)
	}
	if up.Record == nil || up.Record.Status != pd.StatusSuccess {
		t.Errorf("Record = %+v", up.Record)
	}

	st, err := f.app.ResourceStatus(context.Background(), post)
	if err != nil {
		t.Fatalf("ResourceStatus() error = %v", err)
	}
	if st.Metadata.Title != "Hello" {
		t.Errorf("Metadata = %+v", st.Metadata)
	}
	if len(st.Uploads) != 1 || st.Uploads[0].TransactionID != testTxID {
		t.Errorf("Uploads = %+v", st.Uploads)
	}
	if st.Registry != "Uploaded (1 version)" {
		t.Errorf("Registry = %q", st.Registry)
	}

	if _, err := f.app.PublishFile(context.Background(), filepath.Dir(post)); !errors.Is(err, pd.ErrValidation) {
		t.Errorf("PublishFile(dir) error = %v, want ErrValidation", err)
	}
}

func TestPDApp_PublishSiteRequiresDirectory(t *testing.T) {
	f := newTestApp(t, "0")
	page := writeFile(t, filepath.Join(f.dir, "index.html"), "<h1>hi</h1>")

	if _, err := f.app.PublishSite(context.Background(), page, ""); !errors.Is(err, pd.ErrValidation) {
		t.Errorf("PublishSite(file) error = %v, want ErrValidation", err)
	}
	if n := len(f.runner.Calls()); n != 0 {
		t.Errorf("runner called %d times", n)
	}
}

func TestPDApp_PublishSiteWithoutAccount(t *testing.T) {
	f := newTestApp(t, "0")
	site := filepath.Join(f.dir, "site")
	writeFile(t, filepath.Join(site, "index.html"), "<h1>hi</h1>")

	rec, err := f.app.PublishSite(context.Background(), site, "blog")
	if !errors.Is(err, pd.ErrNoActiveAccount) {
		t.Fatalf("PublishSite() error = %v, want ErrNoActiveAccount", err)
	}
	if rec == nil || rec.Status != pd.StatusFailed || rec.SiteID != "blog" {
		t.Errorf("record = %+v, want failed record for blog", rec)
	}

	recent, err := f.app.RecentDeployments(10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("RecentDeployments() = %d, %v; want 1", len(recent), err)
	}
	got, err := f.app.Deployment(rec.ID)
	if err != nil || got.ID != rec.ID {
		t.Errorf("Deployment() = %+v, %v", got, err)
	}

	stats, err := f.app.HistoryStats()
	if err != nil || stats.Total != 1 || stats.Failed != 1 {
		t.Errorf("HistoryStats() = %+v, %v", stats, err)
	}

	path, err := f.app.ExportHistory(context.Background())
	if err != nil {
		t.Fatalf("ExportHistory() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export not written: %v", err)
	}

	if err := f.app.DeleteDeployment(rec.ID); err != nil {
		t.Fatalf("DeleteDeployment() error = %v", err)
	}
	if _, err := f.app.Deployment(rec.ID); !errors.Is(err, pd.ErrNotFound) {
		t.Errorf("Deployment(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestPDApp_ResourceID(t *testing.T) {
	f := newTestApp(t, "0")
	plain := writeFile(t, filepath.Join(f.dir, "plain.txt"), "no front matter")

	ident, meta, err := f.app.ResourceID(context.Background(), plain)
	if err != nil {
		t.Fatalf("ResourceID() error = %v", err)
	}
	if ident.Source != pd.SourceContent || ident.Confidence != pd.ConfidenceMedium {
		t.Errorf("ResourceID() = %+v", ident)
	}
	if meta.Title != "" {
		t.Errorf("Metadata = %+v, want empty", meta)
	}

	st, err := f.app.ResourceStatus(context.Background(), plain)
	if err != nil {
		t.Fatalf("ResourceStatus() error = %v", err)
	}
	if len(st.Uploads) != 0 || st.Registry != "Not uploaded (archive not found or empty)" {
		t.Errorf("ResourceStatus() = %+v", st)
	}
}
