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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scanwrite/prediction-engine/pkg/metrics"
)

type instrumentedStore struct {
	next Store
}

// NewInstrumentedStore wraps a Store and emits metrics for Get and Put.
func NewInstrumentedStore(next Store) Store {
	return &instrumentedStore{next: next}
}

func (m *instrumentedStore) Get(ctx context.Context, key uint64) ([]float64, bool, error) {
	timer := prometheus.NewTimer(metrics.DistStoreLookupLatency)
	defer timer.ObserveDuration()

	metrics.DistStoreLookups.Inc()

	dist, found, err := m.next.Get(ctx, key)
	if found {
		metrics.DistStoreHits.Inc()
	}

	return dist, found, err
}

func (m *instrumentedStore) Put(ctx context.Context, key uint64, dist []float64) error {
	err := m.next.Put(ctx, key, dist)
	if err == nil {
		metrics.DistStoreAdmissions.Inc()
	}

	return err
}
