package vault

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"permadeploy/internal/pd"
)

// MemoryVault keeps exports in memory. It is safe for concurrent use.
type MemoryVault struct {
	name    string
	exports map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		exports: make(map[string][]byte),
	}
}

// PutExport stores an export under name.
func (m *MemoryVault) PutExport(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := validName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports[name] = data
	return nil
}

// Export returns a stored export.
func (m *MemoryVault) Export(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.exports[name]
	return data, ok
}

// Names lists stored exports in lexical order.
func (m *MemoryVault) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.exports))
	for n := range m.exports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

var _ pd.Vault = (*MemoryVault)(nil)
