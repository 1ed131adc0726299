package testutil

import (
	"minisite-go/internal/encryption"
	"minisite-go/internal/minisite"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() minisite.Encryptor {
	return encryption.NewTestEncryptor()
}
