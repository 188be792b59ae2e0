package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/models"
)

// RedisStore keeps the cache snapshot in a single Redis hash so multiple
// runs (or API instances) share resolved statuses. Same Load-once /
// Save-once contract as FileStore.
type RedisStore struct {
	client  *redis.Client
	hashKey string
	logger  *logrus.Logger
}

// NewRedisStore creates a Redis-backed cache store
func NewRedisStore(client *redis.Client, hashKey string, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		hashKey: hashKey,
		logger:  logger,
	}
}

// Load reads the whole hash. Connection errors degrade to an empty map
// with a warning, mirroring the tolerant file store behaviour.
func (s *RedisStore) Load(ctx context.Context) (map[string]models.Status, error) {
	entries := make(map[string]models.Status)

	raw, err := s.client.HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", s.hashKey).Warn("Redis cache unavailable, starting empty")
		return entries, nil
	}

	for key, value := range raw {
		status := models.Status(value)
		if !status.Resolved() {
			continue
		}
		entries[key] = status
	}

	s.logger.WithFields(logrus.Fields{
		"key":     s.hashKey,
		"entries": len(entries),
	}).Info("Cache loaded (Redis)")

	return entries, nil
}

// Save replaces the hash with the given entries in one pipeline.
func (s *RedisStore) Save(ctx context.Context, entries map[string]models.Status) error {
	fields := make(map[string]interface{}, len(entries))
	for key, status := range entries {
		if !status.Resolved() {
			continue
		}
		fields[key] = string(status)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.hashKey)
	if len(fields) > 0 {
		pipe.HSet(ctx, s.hashKey, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cache to redis: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"key":     s.hashKey,
		"entries": len(fields),
	}).Info("Cache saved (Redis)")

	return nil
}

// Stats returns entry count and backend info for the cache admin endpoints.
func (s *RedisStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	count, err := s.client.HLen(ctx, s.hashKey).Result()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"backend": "redis",
		"key":     s.hashKey,
		"entries": count,
	}, nil
}

// Delete removes a single CNPJ from the hash.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.HDel(ctx, s.hashKey, key).Err()
}

// Clear drops the whole hash.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.hashKey).Err()
}
