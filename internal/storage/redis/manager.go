package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
	"github.com/bobmcallan/niftyscope/internal/interfaces"
)

// Manager implements interfaces.StorageManager for Redis.
type Manager struct {
	client goredis.UniversalClient
	kv     interfaces.KeyValueStorage
	logger *common.Logger
}

// NewManager connects to Redis and verifies the connection with PING.
func NewManager(logger *common.Logger, cfg *config.RedisConfig) (interfaces.StorageManager, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Debug().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Redis storage manager initialized")

	return newManager(client, cfg.Prefix, logger), nil
}

func newManager(client goredis.UniversalClient, prefix string, logger *common.Logger) *Manager {
	return &Manager{
		client: client,
		kv:     NewKVStorage(client, prefix, logger),
		logger: logger,
	}
}

// KeyValueStorage returns the key-value storage.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Backend names the storage implementation.
func (m *Manager) Backend() string {
	return "redis"
}

// Close closes the Redis client.
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
