package secrets

import (
	"sync"

	"permadeploy/internal/pd"
)

// MemoryStore is an in-memory pd.SecretStore, useful for tests and for
// sessions that must not touch disk. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ pd.SecretStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(service, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[secretKey(service, key)]
	return v, ok, nil
}

func (m *MemoryStore) Set(service, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[secretKey(service, key)] = value
	return nil
}

func (m *MemoryStore) Remove(service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, secretKey(service, key))
	return nil
}
