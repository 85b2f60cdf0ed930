package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"posto/internal/storage"
)

// Storage keeps session state in Redis, for consoles that must survive
// process restarts without a local database file.
type Storage struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client) *Storage {
	return &Storage{
		client: client,
		prefix: "posto:session:",
	}
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	const op = "storage.redis.Set"

	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	const op = "storage.redis.Get"

	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

// Clear deletes every session key in a single DEL, which Redis applies
// atomically.
func (s *Storage) Clear(ctx context.Context) error {
	const op = "storage.redis.Clear"

	keys := []string{
		s.prefix + storage.KeyAccessToken,
		s.prefix + storage.KeyRefreshToken,
		s.prefix + storage.KeyUserData,
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
