package vault

import (
	"fmt"

	"qv-go/internal/config"
	"qv-go/internal/quarantine"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
func NewVaultFromConfig(cfg config.VaultConfig) (quarantine.Vault, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem vault requires dir to be set")
		}
		v, err := NewFileSystemVault(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
