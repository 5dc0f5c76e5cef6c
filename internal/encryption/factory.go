package encryption

import (
	"fmt"

	"qv-go/internal/config"
	"qv-go/internal/quarantine"
)

// NewEncryptorFromConfig creates the export sealer named by the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (quarantine.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
