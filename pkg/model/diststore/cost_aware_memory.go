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
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
)

const (
	defaultNumCounters = 1e6 // keys tracked for admission decisions
	defaultBufferItems = 64  // default buffer size for ristretto
	// entryOverheadBytes approximates per-entry bookkeeping cost.
	entryOverheadBytes = 64
)

// CostAwareMemoryStoreConfig holds the configuration for the
// CostAwareMemoryStore.
type CostAwareMemoryStoreConfig struct {
	// Size is the maximum memory size that can be used by the store.
	// Supports human-readable formats like "512MiB", "2GiB", "1GB", etc.
	Size string `json:"size,omitempty"`
}

// DefaultCostAwareMemoryStoreConfig returns a default configuration for the
// CostAwareMemoryStore.
func DefaultCostAwareMemoryStoreConfig() *CostAwareMemoryStoreConfig {
	return &CostAwareMemoryStoreConfig{
		Size: "512MiB",
	}
}

// NewCostAwareMemoryStore creates a new CostAwareMemoryStore instance.
func NewCostAwareMemoryStore(cfg *CostAwareMemoryStoreConfig) (*CostAwareMemoryStore, error) {
	if cfg == nil {
		cfg = DefaultCostAwareMemoryStoreConfig()
	}

	sizeBytes, err := humanize.ParseBytes(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cost-aware store: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []float64]{
		NumCounters: defaultNumCounters, // number of keys to track.
		MaxCost:     int64(sizeBytes),   // #nosec G115 , maximum cost of cache
		BufferItems: defaultBufferItems, // number of keys per Get buffer.
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cost-aware store: %w", err)
	}

	return &CostAwareMemoryStore{
		data: cache,
	}, nil
}

// CostAwareMemoryStore implements the Store interface using a Ristretto
// cache for cost-aware memory management.
type CostAwareMemoryStore struct {
	data *ristretto.Cache[uint64, []float64]
}

var _ Store = &CostAwareMemoryStore{}

// MaxCost returns the configured memory budget in bytes.
func (m *CostAwareMemoryStore) MaxCost() int64 {
	return m.data.MaxCost()
}

// Get retrieves the distribution cached for a sequence key.
func (m *CostAwareMemoryStore) Get(_ context.Context, key uint64) ([]float64, bool, error) {
	dist, found := m.data.Get(key)
	return dist, found, nil
}

// Put admits a distribution for a sequence key, costed by its memory
// footprint.
func (m *CostAwareMemoryStore) Put(_ context.Context, key uint64, dist []float64) error {
	if len(dist) == 0 {
		return fmt.Errorf("no distribution provided for admission to store")
	}

	cost := int64(len(dist))*8 + entryOverheadBytes
	m.data.Set(key, dist, cost)
	m.data.Wait()
	return nil
}
