package testutil

import (
	"fmt"
	"path/filepath"
	"sync"

	"permadeploy/internal/pd"
)

// MockScanner is an in-memory pd.Scanner. Paths are resolved to absolute
// form before lookup.
type MockScanner struct {
	mu      sync.Mutex
	entries map[string]*pd.ScanSummary
}

// NewMockScanner creates an empty scanner.
func NewMockScanner() *MockScanner {
	return &MockScanner{entries: make(map[string]*pd.ScanSummary)}
}

// AddFile registers a single file of size bytes.
func (m *MockScanner) AddFile(path string, size int64) {
	m.add(path, 1, size)
}

// AddDirectory registers a directory holding count files totalling size bytes.
func (m *MockScanner) AddDirectory(path string, count int, size int64) {
	m.add(path, count, size)
}

func (m *MockScanner) add(path string, count int, size int64) {
	abs, _ := filepath.Abs(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[abs] = &pd.ScanSummary{Root: abs, FileCount: count, TotalSize: size}
}

func (m *MockScanner) Scan(root string) (*pd.ScanSummary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[abs]
	if !ok {
		return nil, fmt.Errorf("stat path: %s: no such file or directory", abs)
	}
	cp := *s
	return &cp, nil
}

var _ pd.Scanner = (*MockScanner)(nil)
