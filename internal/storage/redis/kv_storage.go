// Package redis stores portal state in Redis so several portal instances can share it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/interfaces"
)

// scanBatch is the COUNT hint passed to SCAN by GetAll.
const scanBatch = 100

// KVStorage implements interfaces.KeyValueStorage on Redis.
// Every key is stored under prefix.
type KVStorage struct {
	client goredis.UniversalClient
	prefix string
	logger *common.Logger
}

// NewKVStorage creates a key-value storage using client.
func NewKVStorage(client goredis.UniversalClient, prefix string, logger *common.Logger) *KVStorage {
	return &KVStorage{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *KVStorage) redisKey(key string) string {
	return s.prefix + key
}

// Get retrieves a value by key. An absent key yields interfaces.ErrKeyNotFound.
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, key)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a key-value pair without expiry.
func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GetAll retrieves every key under the prefix, with the prefix stripped.
func (s *KVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string)

	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		val, err := s.client.Get(ctx, full).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue // deleted between SCAN and GET
			}
			return nil, fmt.Errorf("failed to get key %s: %w", full, err)
		}
		result[strings.TrimPrefix(full, s.prefix)] = val
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return result, nil
}
