package encryption

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"minisite-go/internal/minisite"
)

// testMagic starts every archive written by TestEncryptor.
const testMagic = "MSENC\x01"

// ErrWrongPassphrase is returned by TestEncryptor.Unlock for a passphrase
// other than the one given to Setup.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// TestEncryptor stands in for the age encryptor when the encryption type is
// "test". It frames data as magic, payload and a CRC-32 of the payload: the
// stored copy differs from the upload and a damaged copy fails to decrypt,
// but nothing is kept secret.
type TestEncryptor struct {
	passphrase string
}

var _ minisite.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that unlocks with any passphrase
// until Setup is called.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup remembers passphrase. Unlock only accepts that passphrase afterwards.
func (e *TestEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return errors.New("passphrase must not be empty")
	}
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, testMagic); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	sum := crc32.NewIEEE()
	if _, err := io.Copy(io.MultiWriter(w, sum), r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, sum.Sum32()); err != nil {
		return fmt.Errorf("writing checksum: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (minisite.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return testDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

type testDecryptionContext struct{}

// Decrypt checks the frame written by Encrypt and copies out the payload.
// Nothing is written to w unless the checksum matches.
func (testDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	if len(data) < len(testMagic)+crc32.Size || !bytes.HasPrefix(data, []byte(testMagic)) {
		return errors.New("not a test-encrypted archive")
	}

	payload := data[len(testMagic) : len(data)-crc32.Size]
	want := binary.BigEndian.Uint32(data[len(data)-crc32.Size:])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return fmt.Errorf("checksum mismatch: got %08x, want %08x", got, want)
	}

	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing plaintext: %w", err)
	}
	return nil
}
