package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// PassphraseEnv names the environment variable holding the passphrase for a
// protected catalog key.
const PassphraseEnv = "ALICE_KEY_PASSPHRASE"

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - ALICE_CONFIG_PATH: config file location (default: ~/.config/alice.toml)
//   - ALICE_HOME: base directory for alice data (default: ~/.local/share/alice)
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

// KeyPassphrase returns the catalog key passphrase from the environment, or "".
func KeyPassphrase() string {
	return os.Getenv(PassphraseEnv)
}

func getConfigPath() (string, error) {
	if path := os.Getenv("ALICE_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "alice.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("ALICE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "alice"), nil
}
