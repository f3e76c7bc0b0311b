package vault

import (
	"context"
	"fmt"

	"permadeploy/internal/config"
	"permadeploy/internal/pd"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
// An empty type disables mirroring and returns nil.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (pd.Vault, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		v, err := NewS3Vault(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("%w: filesystem vault requires fs_vault_root to be set", pd.ErrConfiguration)
		}
		v, err := NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown vault type: %s", pd.ErrConfiguration, cfg.Type)
	}
}
