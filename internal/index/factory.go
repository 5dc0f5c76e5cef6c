package index

import (
	"fmt"

	"qv-go/internal/config"
	"qv-go/internal/quarantine"
)

// NewIndexStoreFromConfig creates an IndexStore based on the index config type.
func NewIndexStoreFromConfig(cfg config.IndexConfig) (quarantine.IndexStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryIndexStore(), nil
	case "json":
		if cfg.Path == "" {
			return nil, fmt.Errorf("json index requires path to be set")
		}
		s, err := NewJSONIndexStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Type)
	}
}
