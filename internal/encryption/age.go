package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/aliceagent/alice-display/internal/config"
)

// ageHeader starts every binary age file, including a passphrase-protected
// private key.
const ageHeader = "age-encryption.org/v1"

// AgeKeyring implements Keyring using filippo.io/age with X25519 keys.
// The public key is stored in plaintext. The private key is stored either in
// plaintext (mode 0600) or encrypted with a passphrase using age's
// scrypt-based passphrase encryption.
type AgeKeyring struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ Keyring = (*AgeKeyring)(nil)

// NewAgeKeyring creates a new AgeKeyring from configuration.
func NewAgeKeyring(cfg config.EncryptionConfig) *AgeKeyring {
	return &AgeKeyring{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup generates a new X25519 key pair. It refuses to overwrite existing keys.
func (k *AgeKeyring) Setup(passphrase string) error {
	if k.IsConfigured() {
		return fmt.Errorf("keys already exist at %s", k.privateKeyPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	for _, p := range []string{k.publicKeyPath, k.privateKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	if err := os.WriteFile(k.publicKeyPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	privFile, err := os.OpenFile(k.privateKeyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating private key file: %w", err)
	}
	defer privFile.Close()

	if passphrase == "" {
		if _, err := io.WriteString(privFile, identity.String()+"\n"); err != nil {
			return fmt.Errorf("writing private key: %w", err)
		}
		return nil
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	w, err := age.Encrypt(privFile, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("writing encrypted private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted private key: %w", err)
	}
	return nil
}

// Seal encrypts r to the stored public key.
func (k *AgeKeyring) Seal(r io.Reader, w io.Writer) error {
	recipient, err := k.loadRecipient()
	if err != nil {
		return fmt.Errorf("loading public key: %w", err)
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Unlock loads the private key. A passphrase-protected key needs the
// passphrase; a plaintext key ignores it.
func (k *AgeKeyring) Unlock(passphrase string) (Decryptor, error) {
	privData, err := os.ReadFile(k.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}

	keyData := privData
	if bytes.HasPrefix(privData, []byte(ageHeader)) {
		if passphrase == "" {
			return nil, fmt.Errorf("private key is passphrase-protected")
		}
		identity, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}
		decReader, err := age.Decrypt(bytes.NewReader(privData), identity)
		if err != nil {
			return nil, fmt.Errorf("decrypting private key: %w", err)
		}
		if keyData, err = io.ReadAll(decReader); err != nil {
			return nil, fmt.Errorf("reading decrypted private key: %w", err)
		}
	}

	identities, err := age.ParseIdentities(bytes.NewReader(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in private key")
	}
	return &AgeDecryptor{identity: identities[0]}, nil
}

// IsConfigured returns true if both key files exist.
func (k *AgeKeyring) IsConfigured() bool {
	if _, err := os.Stat(k.publicKeyPath); err != nil {
		return false
	}
	if _, err := os.Stat(k.privateKeyPath); err != nil {
		return false
	}
	return true
}

// PublicKey returns the age recipient string, for sharing with whoever
// produces the catalog export.
func (k *AgeKeyring) PublicKey() (string, error) {
	f, err := os.Open(k.publicKeyPath)
	if err != nil {
		return "", fmt.Errorf("reading public key: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	if !s.Scan() {
		return "", fmt.Errorf("public key file is empty")
	}
	return s.Text(), nil
}

func (k *AgeKeyring) loadRecipient() (age.Recipient, error) {
	pubData, err := os.ReadFile(k.publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(pubData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in public key file")
	}
	return recipients[0], nil
}

// AgeDecryptor holds an unlocked age identity.
type AgeDecryptor struct {
	identity age.Identity
}

var _ Decryptor = (*AgeDecryptor)(nil)

// Decrypt reads age ciphertext from r and writes plaintext to w.
func (d *AgeDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	decReader, err := age.Decrypt(r, d.identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

// DisabledKeyring is the Keyring used when encryption is turned off.
type DisabledKeyring struct{}

var _ Keyring = DisabledKeyring{}

func (DisabledKeyring) Setup(string) error { return ErrDisabled }
func (DisabledKeyring) Seal(io.Reader, io.Writer) error { return ErrDisabled }
func (DisabledKeyring) Unlock(string) (Decryptor, error) { return nil, ErrDisabled }
func (DisabledKeyring) IsConfigured() bool { return false }
