package secrets

import (
	"fmt"

	"permadeploy/internal/config"
	"permadeploy/internal/pd"
)

// NewSecretStoreFromConfig creates a SecretStore based on the configured type.
func NewSecretStoreFromConfig(cfg config.SecretsConfig, passphrase string) (pd.SecretStore, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("age secret store requires path to be set")
		}
		if cfg.IdentityPath == "" && passphrase == "" {
			return nil, fmt.Errorf("age secret store requires identity_path or a passphrase")
		}
		return NewAgeFileStore(cfg.Path, cfg.IdentityPath, passphrase), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown secret store type: %q", cfg.Type)
	}
}
