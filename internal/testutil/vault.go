package testutil

import (
	"context"
	"io"

	"permadeploy/internal/pd"
	"permadeploy/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}

// FailingVault rejects every call with Err.
type FailingVault struct {
	Err error
}

func (f *FailingVault) PutExport(ctx context.Context, name string, r io.Reader, size int64) error {
	return f.Err
}

func (f *FailingVault) ValidateSetup(ctx context.Context) error {
	return f.Err
}

var _ pd.Vault = (*FailingVault)(nil)
