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

// Package diststore provides backends for caching oracle probability
// distributions keyed by token-sequence hash. The oracle contract
// guarantees determinism for a fixed sequence, so entries never go stale;
// backends differ only in capacity management and sharing scope.
package diststore

import (
	"context"
	"fmt"
	"time"

	"github.com/scanwrite/prediction-engine/pkg/metrics"
)

// Config holds the configuration for the distribution store.
// It may configure several backends such as listed within the struct.
// If multiple backends are configured, only the first one will be used.
type Config struct {
	// InMemoryConfig holds the configuration for the in-memory store.
	InMemoryConfig *InMemoryStoreConfig `json:"inMemoryConfig"`
	// CostAwareMemoryConfig holds the configuration for the cost-aware
	// memory store.
	CostAwareMemoryConfig *CostAwareMemoryStoreConfig `json:"costAwareMemoryConfig"`
	// RedisConfig holds the configuration for the Redis store.
	RedisConfig *RedisStoreConfig `json:"redisConfig"`

	// EnableMetrics toggles whether lookups/hits/admissions are recorded.
	EnableMetrics bool `json:"enableMetrics"`
	// MetricsLoggingInterval defines the interval at which metrics are
	// logged. If zero, metrics logging is disabled.
	// Requires `EnableMetrics` to be true.
	MetricsLoggingInterval time.Duration `json:"metricsLoggingInterval"`
}

// DefaultConfig returns a default configuration for the distribution store.
func DefaultConfig() *Config {
	return &Config{
		InMemoryConfig: DefaultInMemoryStoreConfig(),
		EnableMetrics:  false,
	}
}

// Store defines the interface for a distribution cache backend.
//
// Store operations are thread-safe and can be performed concurrently.
type Store interface {
	// Get retrieves the distribution cached for a sequence key.
	// The boolean reports whether the key was found.
	Get(ctx context.Context, key uint64) ([]float64, bool, error)
	// Put admits a distribution for a sequence key.
	Put(ctx context.Context, key uint64, dist []float64) error
}

// NewStore creates a new Store instance.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var store Store
	var err error

	switch {
	case cfg.InMemoryConfig != nil:
		store, err = NewInMemoryStore(cfg.InMemoryConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
	case cfg.CostAwareMemoryConfig != nil:
		store, err = NewCostAwareMemoryStore(cfg.CostAwareMemoryConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create cost-aware memory store: %w", err)
		}
	case cfg.RedisConfig != nil:
		store, err = NewRedisStore(cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	default:
		return nil, fmt.Errorf("no valid store configuration provided")
	}

	// wrap in metrics only if enabled
	if cfg.EnableMetrics {
		store = NewInstrumentedStore(store)
		metrics.Register()
		if cfg.MetricsLoggingInterval > 0 {
			// this is non-blocking
			metrics.StartMetricsLogging(ctx, cfg.MetricsLoggingInterval)
		}
	}

	return store, nil
}
