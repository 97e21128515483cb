package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aliceagent/alice-display/internal/config"
)

func newTestKeyring(t *testing.T) *AgeKeyring {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "alice.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "alice.key"),
	}
	return NewAgeKeyring(cfg)
}

func TestAgeKeyring_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	k := newTestKeyring(t)
	if k.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
}

func TestAgeKeyring_Setup_RefusesOverwrite(t *testing.T) {
	t.Parallel()
	k := newTestKeyring(t)

	if err := k.Setup(""); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !k.IsConfigured() {
		t.Fatal("IsConfigured() = false after Setup, want true")
	}
	if err := k.Setup(""); err == nil {
		t.Error("second Setup() should refuse to overwrite keys")
	}
}

func TestAgeKeyring_SealUnlockRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		passphrase string
		input      []byte
	}{
		{name: "plaintext key", input: []byte(`[{"id": "1", "weather": "Sunny"}]`)},
		{name: "protected key", passphrase: "test-passphrase", input: []byte(`{"images": []}`)},
		{name: "empty", input: []byte{}},
		{name: "large catalog", input: bytes.Repeat([]byte(`{"id":"x"},`), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			k := newTestKeyring(t)
			if err := k.Setup(tt.passphrase); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			var sealed bytes.Buffer
			if err := k.Seal(bytes.NewReader(tt.input), &sealed); err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Equal(sealed.Bytes(), tt.input) {
				t.Error("sealed output is identical to plaintext")
			}

			dec, err := k.Unlock(tt.passphrase)
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}

			var opened bytes.Buffer
			if err := dec.Decrypt(bytes.NewReader(sealed.Bytes()), &opened); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(opened.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", opened.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeKeyring_PlaintextKeyFileMode(t *testing.T) {
	t.Parallel()
	k := newTestKeyring(t)
	if err := k.Setup(""); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	info, err := os.Stat(k.privateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("private key mode = %o, want 600", perm)
	}

	data, _ := os.ReadFile(k.privateKeyPath)
	if !strings.HasPrefix(string(data), "AGE-SECRET-KEY-") {
		t.Errorf("plaintext private key has unexpected prefix: %.20q", data)
	}
}

func TestAgeKeyring_UnlockProtectedKey(t *testing.T) {
	t.Parallel()

	k := newTestKeyring(t)
	if err := k.Setup("correct-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := k.Unlock("wrong-passphrase"); err == nil {
		t.Error("Unlock() with wrong passphrase should return error")
	}
	if _, err := k.Unlock(""); err == nil {
		t.Error("Unlock() without passphrase should return error for protected key")
	}
}

func TestAgeKeyring_PublicKey(t *testing.T) {
	t.Parallel()
	k := newTestKeyring(t)
	if err := k.Setup(""); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	pub, err := k.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey() error = %v", err)
	}
	if !strings.HasPrefix(pub, "age1") {
		t.Errorf("PublicKey() = %q, want age1 prefix", pub)
	}
}

func TestAgeKeyring_BeforeSetup(t *testing.T) {
	t.Parallel()

	k := newTestKeyring(t)
	var buf bytes.Buffer
	if err := k.Seal(bytes.NewReader([]byte("data")), &buf); err == nil {
		t.Error("Seal() before Setup should return error")
	}
	if _, err := k.Unlock(""); err == nil {
		t.Error("Unlock() before Setup should return error")
	}
}

func TestNewKeyringFromConfig(t *testing.T) {
	t.Parallel()

	k, err := NewKeyringFromConfig(config.EncryptionConfig{Type: "age"})
	if err != nil {
		t.Fatalf("NewKeyringFromConfig(age) error = %v", err)
	}
	if _, ok := k.(*AgeKeyring); !ok {
		t.Errorf("NewKeyringFromConfig(age) = %T, want *AgeKeyring", k)
	}

	k, err = NewKeyringFromConfig(config.EncryptionConfig{Type: "none"})
	if err != nil {
		t.Fatalf("NewKeyringFromConfig(none) error = %v", err)
	}
	if _, err := k.Unlock(""); !errors.Is(err, ErrDisabled) {
		t.Errorf("disabled Unlock() error = %v, want ErrDisabled", err)
	}

	if _, err := NewKeyringFromConfig(config.EncryptionConfig{Type: "rot13"}); err == nil {
		t.Error("NewKeyringFromConfig(rot13) expected error")
	}
}
