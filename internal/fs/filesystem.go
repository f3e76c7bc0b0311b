package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"permadeploy/internal/pd"
)

// Scanner summarizes publish roots on the real filesystem. Ignore patterns
// come from config plus the root's .pdignore file.
type Scanner struct {
	ignore []string
}

var _ pd.Scanner = (*Scanner)(nil)

// NewScanner creates a scanner with the configured ignore patterns.
func NewScanner(ignore []string) *Scanner {
	return &Scanner{ignore: ignore}
}

// Resolve converts a raw path to an absolute path of a regular file or directory.
func Resolve(rawPath string) (string, os.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if !mode.IsRegular() && !mode.IsDir() {
		return "", nil, fmt.Errorf("unsupported file type %s: %s", mode.Type(), absPath)
	}
	return absPath, info, nil
}

// Scan counts the regular files under root and their total size. A file
// root yields a single-file summary.
func (s *Scanner) Scan(root string) (*pd.ScanSummary, error) {
	absPath, info, err := Resolve(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return &pd.ScanSummary{Root: absPath, FileCount: 1, TotalSize: info.Size()}, nil
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(absPath, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append(append([]string{}, defaultIgnorePatterns...), s.ignore...), filePatterns...)
	matcher := NewIgnoreMatcher(patterns)

	summary := &pd.ScanSummary{Root: absPath}
	err = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == absPath {
			return nil
		}
		rel, err := filepath.Rel(absPath, p)
		if err != nil {
			return err
		}
		if matcher.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		summary.FileCount++
		summary.TotalSize += fi.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return summary, nil
}
