package pd

import (
	"context"
	"io"
)

// Vault is an archive destination for history exports.
// All operations stream through io.Reader so large exports are not buffered twice.
type Vault interface {
	// PutExport stores an export under name. size is the number of bytes
	// that will be read from r.
	PutExport(ctx context.Context, name string, r io.Reader, size int64) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
