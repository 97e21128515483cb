package encryption

import (
	"fmt"

	"github.com/aliceagent/alice-display/internal/config"
)

// NewKeyringFromConfig creates a Keyring based on the configuration type.
func NewKeyringFromConfig(cfg config.EncryptionConfig) (Keyring, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeKeyring(cfg), nil
	case "none":
		return DisabledKeyring{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
