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

// testStoreBasic is a common test helper for basic Put and Get behavior.
func testStoreBasic(t *testing.T, store diststore.Store) {
	t.Helper()

	key := uint64(12345)
	dist := []float64{0.5, 0.3, 0.2}

	// Miss before admission.
	_, found, err := store.Get(t.Context(), key)
	require.NoError(t, err)
	assert.False(t, found)

	// Admit and hit.
	err = store.Put(t.Context(), key, dist)
	require.NoError(t, err)

	got, found, err := store.Get(t.Context(), key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, dist, got)
}

// testStoreOverwrite is a common test helper for re-admission of a key.
func testStoreOverwrite(t *testing.T, store diststore.Store) {
	t.Helper()

	key := uint64(777)

	require.NoError(t, store.Put(t.Context(), key, []float64{1.0}))
	require.NoError(t, store.Put(t.Context(), key, []float64{0.25, 0.75}))

	got, found, err := store.Get(t.Context(), key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float64{0.25, 0.75}, got)
}

// testStoreRejectsEmpty is a common test helper for empty admissions.
func testStoreRejectsEmpty(t *testing.T, store diststore.Store) {
	t.Helper()

	err := store.Put(t.Context(), 1, nil)
	assert.Error(t, err)
}

// testCommonStoreBehavior runs the shared behavior suite against a backend.
func testCommonStoreBehavior(t *testing.T, newStore func(t *testing.T) diststore.Store) {
	t.Helper()

	t.Run("basic", func(t *testing.T) {
		testStoreBasic(t, newStore(t))
	})
	t.Run("overwrite", func(t *testing.T) {
		testStoreOverwrite(t, newStore(t))
	})
	t.Run("rejects empty", func(t *testing.T) {
		testStoreRejectsEmpty(t, newStore(t))
	})
}
