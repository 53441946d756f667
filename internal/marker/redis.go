package marker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/PriceHound/internal/types"
)

// RedisMarker stores the marker as the key <prefix>:<label> with an empty value.
type RedisMarker struct {
	client *redis.Client
	key    string
}

// NewRedisMarker creates a Redis-backed marker.
func NewRedisMarker(addr string, db int, prefix, label string) *RedisMarker {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisMarker{client: client, key: Key(prefix, label)}
}

// Key returns the Redis key for a label.
func Key(prefix, label string) string {
	if prefix == "" {
		return label
	}
	return prefix + ":" + label
}

func (m *RedisMarker) Exists(ctx context.Context) (bool, error) {
	n, err := m.client.Exists(ctx, m.key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", types.ErrMarkerBackend, m.key, err)
	}
	return n > 0, nil
}

func (m *RedisMarker) Set(ctx context.Context) error {
	if err := m.client.Set(ctx, m.key, "", 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", types.ErrMarkerBackend, m.key, err)
	}
	return nil
}

func (m *RedisMarker) Clear(ctx context.Context) error {
	if err := m.client.Del(ctx, m.key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", types.ErrMarkerBackend, m.key, err)
	}
	return nil
}

// Ping checks that the server answers.
func (m *RedisMarker) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *RedisMarker) Location() string { return "redis://" + m.client.Options().Addr + "/" + m.key }

// Close closes the Redis connection.
func (m *RedisMarker) Close() error {
	return m.client.Close()
}
