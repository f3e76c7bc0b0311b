package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the root of every scanned directory.
const IgnoreFileName = ".pdignore"

// defaultIgnorePatterns are always applied regardless of config or .pdignore.
var defaultIgnorePatterns = []string{IgnoreFileName}

// ignoreRule is one parsed line of an ignore list.
type ignoreRule struct {
	glob     string
	negate   bool // "!pattern" re-includes a previously ignored path
	dirOnly  bool // "pattern/" matches directories only
	anchored bool // contains '/', matched against the whole relative path
}

// IgnoreMatcher applies gitignore-style rules to paths relative to a publish
// root. Rules are evaluated in order and the last match wins. A file below an
// ignored directory cannot be re-included because the directory is never walked.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw pattern lines. Blank lines and lines starting
// with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var rules []ignoreRule
	for _, raw := range rawPatterns {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var r ignoreRule
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		if strings.Contains(line, "/") {
			r.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if line == "" {
			continue
		}
		if _, err := path.Match(line, ""); err != nil {
			continue
		}
		r.glob = line
		rules = append(rules, r)
	}
	return &IgnoreMatcher{rules: rules}
}

// Match reports whether relativePath should be left out of the publish.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	rel := filepath.ToSlash(relativePath)
	base := path.Base(rel)

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		subject := base
		if r.anchored {
			subject = rel
		}
		if ok, _ := path.Match(r.glob, subject); ok {
			ignored = !r.negate
		}
	}
	return ignored
}

// ParseIgnoreFile reads an ignore file and returns its lines.
// A missing file yields no patterns and no error.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
