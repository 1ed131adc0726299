package encryption

import (
	"bytes"
	"errors"
	"testing"
)

func encryptTest(t *testing.T, e *TestEncryptor, plain []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(plain), &out); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	return out.Bytes()
}

func TestTestEncryptor_roundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "archive bytes", input: []byte("PK\x03\x04site/index.html")},
		{name: "empty", input: []byte{}},
		{name: "large", input: bytes.Repeat([]byte("<p>page</p>"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewTestEncryptor()

			stored := encryptTest(t, e, tt.input)
			if !bytes.HasPrefix(stored, []byte(testMagic)) {
				t.Errorf("stored copy does not start with %q", testMagic)
			}
			if bytes.Equal(stored, tt.input) {
				t.Error("stored copy equals the plaintext")
			}

			ctx, err := e.Unlock("anything")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var plain bytes.Buffer
			if err := ctx.Decrypt(bytes.NewReader(stored), &plain); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(plain.Bytes(), tt.input) {
				t.Errorf("Decrypt() = %d bytes, want %d", plain.Len(), len(tt.input))
			}
		})
	}
}

func TestTestEncryptor_deterministic(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if !bytes.Equal(encryptTest(t, e, []byte("same")), encryptTest(t, e, []byte("same"))) {
		t.Error("same input produced different output")
	}
}

func TestTestEncryptor_passphrase(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()

	if err := e.Setup(""); err == nil {
		t.Error("Setup(\"\") expected error")
	}
	if err := e.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false")
	}

	if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	if _, err := e.Unlock("secret"); err != nil {
		t.Errorf("Unlock(secret) error = %v", err)
	}
}

func TestTestDecryptionContext_rejects(t *testing.T) {
	t.Parallel()
	stored := encryptTest(t, NewTestEncryptor(), []byte("site/index.html"))

	flipped := append([]byte(nil), stored...)
	flipped[len(testMagic)] ^= 0xff

	tests := map[string][]byte{
		"empty":        nil,
		"plaintext":    []byte("PK\x03\x04 not framed"),
		"truncated":    stored[:len(stored)-2],
		"payload flip": flipped,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			if err := (testDecryptionContext{}).Decrypt(bytes.NewReader(data), &out); err == nil {
				t.Error("Decrypt() expected error")
			}
			if out.Len() != 0 {
				t.Errorf("Decrypt() wrote %d bytes on failure", out.Len())
			}
		})
	}
}
