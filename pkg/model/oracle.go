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
	"encoding/binary"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
)

// ErrEmptyDistribution is returned when an oracle produces no probability
// distribution for a token sequence.
var ErrEmptyDistribution = errors.New("oracle returned an empty distribution")

// Oracle maps a token sequence to a probability distribution over the
// vocabulary, indexed by token id. Implementations must be side-effect-free
// and deterministic for a fixed token sequence; the caching layers rely on
// this.
type Oracle interface {
	// Predict returns the next-token probability distribution for the
	// given token sequence.
	Predict(ctx context.Context, tokens []uint32) ([]float64, error)
}

var (
	seqEncModeOnce sync.Once
	seqEncMode     cbor.EncMode
	seqEncModeErr  error
)

// SequenceKey derives a stable 64-bit cache key for a token sequence.
// Canonical CBOR encoding keeps the key deterministic across processes
// sharing a distribution store.
func SequenceKey(tokens []uint32) uint64 {
	seqEncModeOnce.Do(func() {
		seqEncMode, seqEncModeErr = cbor.CanonicalEncOptions().EncMode() // deterministic
	})

	if seqEncModeErr == nil {
		if b, err := seqEncMode.Marshal(tokens); err == nil {
			return xxhash.Sum64(b)
		}
	}

	// Fixed-width little-endian encoding as a deterministic fallback.
	digest := xxhash.New()
	var buf [4]byte
	for _, token := range tokens {
		binary.LittleEndian.PutUint32(buf[:], token)
		_, _ = digest.Write(buf[:])
	}

	return digest.Sum64()
}
