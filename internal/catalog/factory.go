package catalog

import (
	"fmt"
	"path/filepath"

	"permadeploy/internal/config"
	"permadeploy/internal/pd"
)

// NewCatalogFromConfig creates a Catalog implementation based on the catalog config type.
func NewCatalogFromConfig(cfg config.CatalogConfig) (pd.Catalog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("%w: data_dir required for sqlite catalog", pd.ErrConfiguration)
		}
		c, err := NewSQLiteCatalog(filepath.Join(cfg.DataDir, "catalog.db"))
		if err != nil {
			return nil, err
		}
		return c, nil
	case "memory":
		c, err := NewSQLiteCatalog(":memory:")
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown catalog type: %s", pd.ErrConfiguration, cfg.Type)
	}
}
