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

package prediction

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog/v2"

	"github.com/scanwrite/prediction-engine/pkg/model"
	"github.com/scanwrite/prediction-engine/pkg/tokenization"
)

const defaultPrefetchWorkers = 2

// PrefetchConfig holds the configuration for the PrefetchPool.
type PrefetchConfig struct {
	WorkersCount int `json:"workersCount"`
}

// DefaultPrefetchConfig returns a default configuration for the
// PrefetchPool.
func DefaultPrefetchConfig() *PrefetchConfig {
	return &PrefetchConfig{
		WorkersCount: defaultPrefetchWorkers,
	}
}

// PrefetchPool warms the oracle's distribution cache in the background.
// Feeding it the surface text as it changes makes the context distribution
// likely resident by the time the next search runs. Only useful with a
// caching oracle; with an uncached one it just burns inferences.
type PrefetchPool struct {
	workers int
	queue   workqueue.TypedRateLimitingInterface[string]
	wg      sync.WaitGroup

	tokenizer tokenization.Tokenizer
	oracle    model.Oracle
}

// NewPrefetchPool initializes a PrefetchPool over the given tokenizer and
// oracle.
func NewPrefetchPool(config *PrefetchConfig, tokenizer tokenization.Tokenizer,
	oracle model.Oracle,
) (*PrefetchPool, error) {
	if config == nil {
		config = DefaultPrefetchConfig()
	}
	if tokenizer == nil {
		return nil, fmt.Errorf("no tokenizer provided")
	}
	if oracle == nil {
		return nil, fmt.Errorf("no oracle provided")
	}
	if config.WorkersCount <= 0 {
		return nil, fmt.Errorf("workers count must be positive")
	}

	return &PrefetchPool{
		workers:   config.WorkersCount,
		queue:     workqueue.NewTypedRateLimitingQueue(workqueue.DefaultTypedControllerRateLimiter[string]()),
		tokenizer: tokenizer,
		oracle:    oracle,
	}, nil
}

// AddContext enqueues the input text; its completed context is what gets
// warmed. This method only enqueues and does not start processing.
func (pool *PrefetchPool) AddContext(text string) {
	wordContext, _ := Normalize(text)
	if wordContext == "" {
		return
	}

	pool.queue.Add(wordContext)
}

// Run launches worker goroutines that process contexts until the context
// is cancelled.
func (pool *PrefetchPool) Run(ctx context.Context) {
	for range pool.workers {
		pool.wg.Add(1)
		go pool.workerLoop(ctx)
	}

	<-ctx.Done()

	pool.queue.ShutDown()
	pool.wg.Wait()
}

// workerLoop is the main processing loop for each worker.
func (pool *PrefetchPool) workerLoop(ctx context.Context) {
	defer pool.wg.Done()
	for {
		wordContext, shutdown := pool.queue.Get()
		if shutdown {
			return
		}

		if err := pool.processContext(ctx, wordContext); err == nil {
			pool.queue.Forget(wordContext)
		} else {
			pool.queue.AddRateLimited(wordContext)
		}
		pool.queue.Done(wordContext)
	}
}

// processContext encodes the context and requests its distribution,
// admitting it to any cache the oracle carries.
func (pool *PrefetchPool) processContext(ctx context.Context, wordContext string) error {
	tokens, err := pool.tokenizer.Encode(wordContext)
	if err != nil {
		klog.FromContext(ctx).Error(err, "failed to encode context for prefetch", "context", wordContext)
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	if _, err := pool.oracle.Predict(ctx, tokens); err != nil {
		return fmt.Errorf("prefetch inference failed: %w", err)
	}

	return nil
}
