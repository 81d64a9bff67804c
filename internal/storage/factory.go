// Package storage selects the key-value backend named in config.
package storage

import (
	"fmt"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
	"github.com/bobmcallan/niftyscope/internal/interfaces"
	"github.com/bobmcallan/niftyscope/internal/storage/badger"
	"github.com/bobmcallan/niftyscope/internal/storage/redis"
)

// NewStorageManager creates a storage manager for cfg.Storage.Backend.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch cfg.Storage.Backend {
	case "", "badger":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "redis":
		return redis.NewManager(logger, &cfg.Storage.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
