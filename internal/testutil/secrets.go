package testutil

import (
	"permadeploy/internal/pd"
	"permadeploy/internal/secrets"
)

// NewTestSecretStore creates an in-memory secret store for testing.
func NewTestSecretStore() pd.SecretStore {
	return secrets.NewMemoryStore()
}

// FailingSecretStore returns Err from every operation.
type FailingSecretStore struct {
	Err error
}

func (f *FailingSecretStore) Get(string, string) (string, bool, error) { return "", false, f.Err }
func (f *FailingSecretStore) Set(string, string, string) error         { return f.Err }
func (f *FailingSecretStore) Remove(string, string) error              { return f.Err }
