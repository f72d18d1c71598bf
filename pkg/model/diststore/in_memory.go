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

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultInMemoryStoreSize is the default number of distributions kept.
// Distributions are vocabulary-sized, so the bound is deliberately modest.
const defaultInMemoryStoreSize = 4096

// InMemoryStoreConfig holds the configuration for the InMemoryStore.
type InMemoryStoreConfig struct {
	// Size is the maximum number of distributions that can be stored.
	Size int `json:"size"`
}

// DefaultInMemoryStoreConfig returns a default configuration for the
// InMemoryStore.
func DefaultInMemoryStoreConfig() *InMemoryStoreConfig {
	return &InMemoryStoreConfig{
		Size: defaultInMemoryStoreSize,
	}
}

// NewInMemoryStore creates a new InMemoryStore instance.
func NewInMemoryStore(cfg *InMemoryStoreConfig) (*InMemoryStore, error) {
	if cfg == nil {
		cfg = DefaultInMemoryStoreConfig()
	}

	cache, err := lru.New[uint64, []float64](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory store: %w", err)
	}

	return &InMemoryStore{
		data: cache,
	}, nil
}

// InMemoryStore is an LRU-bounded in-memory implementation of the Store
// interface.
type InMemoryStore struct {
	data *lru.Cache[uint64, []float64]
}

var _ Store = &InMemoryStore{}

// Get retrieves the distribution cached for a sequence key.
func (m *InMemoryStore) Get(_ context.Context, key uint64) ([]float64, bool, error) {
	dist, found := m.data.Get(key)
	return dist, found, nil
}

// Put admits a distribution for a sequence key.
func (m *InMemoryStore) Put(_ context.Context, key uint64, dist []float64) error {
	if len(dist) == 0 {
		return fmt.Errorf("no distribution provided for admission to store")
	}

	m.data.Add(key, dist)
	return nil
}
