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

package model

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"

	"github.com/scanwrite/prediction-engine/pkg/model/diststore"
	"github.com/scanwrite/prediction-engine/pkg/utils/logging"
)

// CachedOracle memoizes the distributions of a deterministic Oracle in a
// distribution store. Concurrent requests for the same sequence share a
// single inner inference.
type CachedOracle struct {
	inner Oracle
	store diststore.Store
	group singleflight.Group
}

var _ Oracle = &CachedOracle{}

// NewCachedOracle wraps an Oracle with a distribution store.
func NewCachedOracle(inner Oracle, store diststore.Store) *CachedOracle {
	return &CachedOracle{
		inner: inner,
		store: store,
	}
}

// Predict returns the cached distribution for the token sequence, running
// the inner oracle on a miss.
func (o *CachedOracle) Predict(ctx context.Context, tokens []uint32) ([]float64, error) {
	debugLogger := klog.FromContext(ctx).V(logging.DEBUG).WithName("model.CachedOracle")
	key := SequenceKey(tokens)

	dist, found, err := o.store.Get(ctx, key)
	if err != nil {
		debugLogger.Error(err, "distribution store lookup failed", "key", key)
	} else if found {
		return dist, nil
	}

	result, err, _ := o.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		dist, err := o.inner.Predict(ctx, tokens)
		if err != nil {
			return nil, err
		}
		if len(dist) == 0 {
			return nil, ErrEmptyDistribution
		}

		if putErr := o.store.Put(ctx, key, dist); putErr != nil {
			debugLogger.Error(putErr, "failed to admit distribution", "key", key)
		}

		return dist, nil
	})
	if err != nil {
		return nil, fmt.Errorf("inference failed for sequence key %d: %w", key, err)
	}

	typed, ok := result.([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected distribution type from singleflight result")
	}

	return typed, nil
}
