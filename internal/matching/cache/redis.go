package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"govregistry/internal/matching"
	"govregistry/internal/platform/redis"
)

const keyPrefix = "entity-validation:"

// Redis stores validation results in Redis with a TTL, sharing hits
// across instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*matching.ValidationResult, error) {
	payload, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var result matching.ValidationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &result, nil
}

func (r *Redis) Set(ctx context.Context, key string, result *matching.ValidationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
