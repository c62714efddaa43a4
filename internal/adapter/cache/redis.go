package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tokenscout/internal/domain/model"
)

// RedisStore keeps the token snapshot under a single key with native expiry.
// Calls are bounded by the client's dial/read timeouts so the facade can
// detect an unreachable store without hanging. Errors are reported, never
// retried here.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr, password string, db int, key string, dialTimeout, readTimeout time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: readTimeout,
	})

	return &RedisStore{
		client: client,
		key:    key,
	}
}

func (s *RedisStore) Set(ctx context.Context, snap model.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context) (*model.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// TTL returns the remaining lifetime of the snapshot key, or 0 when the key
// is absent or has no expiry.
func (s *RedisStore) TTL(ctx context.Context) (time.Duration, error) {
	d, err := s.client.TTL(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot ttl from redis: %w", err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
