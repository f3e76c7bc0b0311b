package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanner_Scan(t *testing.T) {
	tests := []struct {
		name      string
		ignore    []string
		files     map[string]string
		wantCount int
		wantSize  int64
	}{
		{
			name:      "counts nested files",
			files:     map[string]string{"index.html": "12345", "css/site.css": "123", "a/b/c.txt": "1"},
			wantCount: 3,
			wantSize:  9,
		},
		{
			name:      "config ignore patterns",
			ignore:    []string{"*.map", "drafts"},
			files:     map[string]string{"index.html": "12", "app.js.map": "xxxxxxxx", "drafts/post.html": "xxxx"},
			wantCount: 1,
			wantSize:  2,
		},
		{
			name:      "ignore file in root",
			files:     map[string]string{"index.html": "12", ".pdignore": "# local\n*.bak\n", "old.bak": "xxx"},
			wantCount: 1,
			wantSize:  2,
		},
		{
			name:      "empty directory",
			files:     map[string]string{},
			wantCount: 0,
			wantSize:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			writeTree(t, root, tt.files)

			got, err := NewScanner(tt.ignore).Scan(root)
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if got.FileCount != tt.wantCount || got.TotalSize != tt.wantSize {
				t.Errorf("Scan() = %d files %d bytes, want %d files %d bytes", got.FileCount, got.TotalSize, tt.wantCount, tt.wantSize)
			}
			if got.Root != root {
				t.Errorf("Root = %s, want %s", got.Root, root)
			}
		})
	}
}

func TestScanner_ScanFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"post.md": "hello"})

	got, err := NewScanner(nil).Scan(filepath.Join(root, "post.md"))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got.FileCount != 1 || got.TotalSize != 5 {
		t.Errorf("Scan() = %+v", got)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	if _, _, err := Resolve(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Resolve(missing) expected error")
	}

	dir := t.TempDir()
	wd, _ := os.Getwd()
	rel, err := filepath.Rel(wd, dir)
	if err != nil {
		t.Skip("temp dir not relative to working directory")
	}
	got, info, err := Resolve(rel)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !filepath.IsAbs(got) || !info.IsDir() || !strings.HasSuffix(got, filepath.Base(dir)) {
		t.Errorf("Resolve() = %s", got)
	}
}
