package keystore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/procurehub/portal-client/internal/infrastructure/config"
)

// Open builds the store selected by configuration.
func Open(cfg *config.KeystoreConfig, logger *zap.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("keystore config is required")
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Path)
	case "redis":
		return NewRedis(&cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown keystore backend %q", cfg.Backend)
	}
}
