// Package encryption seals and opens catalog exports with age.
package encryption

import (
	"errors"
	"io"
)

// ErrDisabled is returned by a Keyring when encryption is turned off in the config.
var ErrDisabled = errors.New("catalog encryption is disabled")

// Keyring manages the key pair used to seal catalog exports.
type Keyring interface {
	// Setup generates a new key pair. A non-empty passphrase protects the
	// private key; an empty one stores it in plaintext for unattended runs.
	Setup(passphrase string) error

	// Seal reads plaintext from r and writes ciphertext to w.
	Seal(r io.Reader, w io.Writer) error

	// Unlock loads the private key, decrypting it with passphrase when it is
	// protected.
	Unlock(passphrase string) (Decryptor, error)

	// IsConfigured reports whether the key pair exists.
	IsConfigured() bool
}

// Decryptor opens sealed data.
type Decryptor interface {
	Decrypt(r io.Reader, w io.Writer) error
}
