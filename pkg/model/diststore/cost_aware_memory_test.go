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

package diststore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanwrite/prediction-engine/pkg/model/diststore"
)

func TestCostAwareMemoryStoreBehavior(t *testing.T) {
	testCommonStoreBehavior(t, func(t *testing.T) diststore.Store {
		t.Helper()
		store, err := diststore.NewCostAwareMemoryStore(nil)
		require.NoError(t, err)
		return store
	})
}

func TestCostAwareMemoryStoreSizeParsing(t *testing.T) {
	store, err := diststore.NewCostAwareMemoryStore(&diststore.CostAwareMemoryStoreConfig{
		Size: "1MiB",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1024*1024), store.MaxCost())

	_, err = diststore.NewCostAwareMemoryStore(&diststore.CostAwareMemoryStoreConfig{
		Size: "not-a-size",
	})
	assert.Error(t, err)
}
