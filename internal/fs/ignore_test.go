package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Parallel()
	m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.map", "!keep.map", "drafts/", "/assets/*.psd", "!", "[bad"})

	want := []ignoreRule{
		{glob: "*.map"},
		{glob: "keep.map", negate: true},
		{glob: "drafts", dirOnly: true},
		{glob: "assets/*.psd", anchored: true},
	}
	if len(m.rules) != len(want) {
		t.Fatalf("rules = %+v, want %d rules", m.rules, len(want))
	}
	for i, r := range m.rules {
		if r != want[i] {
			t.Errorf("rules[%d] = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		want     bool
	}{
		{"basename glob in root", []string{"*.map"}, "app.js.map", false, true},
		{"basename glob in subdirectory", []string{"*.map"}, filepath.Join("js", "app.js.map"), false, true},
		{"basename glob other extension", []string{"*.map"}, "app.js", false, false},
		{"anchored path", []string{"assets/*.psd"}, filepath.Join("assets", "logo.psd"), false, true},
		{"anchored path elsewhere", []string{"assets/*.psd"}, filepath.Join("img", "assets", "logo.psd"), false, false},
		{"leading slash anchors", []string{"/notes.txt"}, "notes.txt", false, true},
		{"directory-only matches directory", []string{"drafts/"}, "drafts", true, true},
		{"directory-only skips file", []string{"drafts/"}, "drafts", false, false},
		{"negation re-includes", []string{"*.map", "!keep.map"}, "keep.map", false, false},
		{"last rule wins", []string{"!keep.map", "*.map"}, "keep.map", false, true},
		{"no patterns", nil, "index.html", false, false},
		{"empty path", []string{"*.map"}, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.path, tt.isDir); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("returns raw lines", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		if err := os.WriteFile(path, []byte("*.map\n# comment\n\ndrafts/\n"), 0644); err != nil {
			t.Fatal(err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 4 {
			t.Fatalf("ParseIgnoreFile() = %q, want 4 lines", patterns)
		}
		if m := NewIgnoreMatcher(patterns); len(m.rules) != 2 {
			t.Errorf("parsed rules = %d, want 2", len(m.rules))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil || patterns != nil {
			t.Errorf("ParseIgnoreFile() = %v, %v; want nil, nil", patterns, err)
		}
	})
}
