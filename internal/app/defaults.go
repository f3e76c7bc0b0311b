package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by GetDefaults and SecretsPassphrase.
const (
	EnvConfigPath        = "PD_CONFIG_PATH"
	EnvHome              = "PD_HOME"
	EnvSecretsPassphrase = "PD_SECRETS_PASSPHRASE"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PD_CONFIG_PATH: config file location (default: ~/.config/permadeploy.toml)
//   - PD_HOME: base directory for permadeploy data (default: ~/.local/share/permadeploy)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// SecretsPassphrase returns the age passphrase from PD_SECRETS_PASSPHRASE.
// An empty value selects the identity-file mode of the secret store.
func SecretsPassphrase() string {
	return os.Getenv(EnvSecretsPassphrase)
}

// getConfigPath returns the config file path, checking PD_CONFIG_PATH env var first,
// then falling back to the default ~/.config/permadeploy.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "permadeploy.toml"), nil
}

// getBaseDir returns the base directory for permadeploy data, checking PD_HOME
// env var first, then falling back to the XDG default ~/.local/share/permadeploy.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "permadeploy"), nil
}
