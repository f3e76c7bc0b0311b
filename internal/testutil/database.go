package testutil

import (
	"testing"

	"permadeploy/internal/catalog"
)

// NewTestCatalog creates a new in-memory catalog with schema applied.
// The catalog is automatically closed when the test completes.
func NewTestCatalog(t *testing.T) *catalog.SQLiteCatalog {
	t.Helper()

	c, err := catalog.NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
	})
	return c
}
