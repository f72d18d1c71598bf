/*
Copyright 2025 The ScanWrite Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package diststore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// redisKeyPrefix namespaces distribution entries in a shared Redis.
const redisKeyPrefix = "dist:"

// RedisStoreConfig holds the configuration for the RedisStore.
type RedisStoreConfig struct {
	Address string `json:"address,omitempty"` // Redis server address
	// TTL bounds the lifetime of cached distributions. Zero means no
	// expiration.
	TTL time.Duration `json:"ttl,omitempty"`
}

// DefaultRedisStoreConfig returns a default configuration for the
// RedisStore.
func DefaultRedisStoreConfig() *RedisStoreConfig {
	return &RedisStoreConfig{
		Address: "redis://127.0.0.1:6379",
	}
}

// NewRedisStore creates a new RedisStore instance.
func NewRedisStore(config *RedisStoreConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisStoreConfig()
	}

	if !strings.HasPrefix(config.Address, "redis://") &&
		!strings.HasPrefix(config.Address, "rediss://") &&
		!strings.HasPrefix(config.Address, "unix://") {
		config.Address = "redis://" + config.Address
	}

	redisOpt, err := redis.ParseURL(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redisURL: %w", err)
	}

	redisClient := redis.NewClient(redisOpt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		RedisClient: redisClient,
		ttl:         config.TTL,
	}, nil
}

// RedisStore implements the Store interface using Redis as the backend,
// sharing cached distributions between engine processes.
type RedisStore struct {
	RedisClient *redis.Client
	ttl         time.Duration
}

var _ Store = &RedisStore{}

// Get retrieves the distribution cached for a sequence key.
func (r *RedisStore) Get(ctx context.Context, key uint64) ([]float64, bool, error) {
	payload, err := r.RedisClient.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to get distribution from Redis: %w", err)
	}

	var dist []float64
	if err := msgpack.Unmarshal(payload, &dist); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal distribution: %w", err)
	}

	return dist, true, nil
}

// Put admits a distribution for a sequence key.
func (r *RedisStore) Put(ctx context.Context, key uint64, dist []float64) error {
	if len(dist) == 0 {
		return fmt.Errorf("no distribution provided for admission to store")
	}

	payload, err := msgpack.Marshal(dist)
	if err != nil {
		return fmt.Errorf("failed to marshal distribution: %w", err)
	}

	if err := r.RedisClient.Set(ctx, redisKey(key), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to add distribution to Redis: %w", err)
	}

	return nil
}

func redisKey(key uint64) string {
	return redisKeyPrefix + strconv.FormatUint(key, 16)
}
