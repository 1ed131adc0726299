package encryption

import (
	"fmt"

	"minisite-go/internal/config"
	"minisite-go/internal/minisite"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor: archives are then stored as uploaded.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (minisite.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
