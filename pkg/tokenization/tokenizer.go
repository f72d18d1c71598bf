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

package tokenization

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/daulet/tokenizers"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenizersCacheSize is the size of the LRU cache for loaded
	// tokenizers. 1 tokenizer per base-model.
	tokenizersCacheSize = 20
	// encodeCacheSize bounds the per-model cache of encoded inputs.
	encodeCacheSize = 4096
	// pieceCacheSize bounds the per-model cache of decoded pieces.
	pieceCacheSize = 65536
)

// WordStartMarker is the subword marker that flags a piece as beginning a
// new word rather than continuing the previous one.
const WordStartMarker = "▁"

// Tokenizer is the engine-facing tokenization contract for a single
// vocabulary: a consistent bijection between token ids and pieces for the
// lifetime of a session.
type Tokenizer interface {
	// Encode converts text into token ids.
	Encode(input string) ([]uint32, error)
	// Decode converts token ids back into text.
	Decode(tokens []uint32) (string, error)
	// Piece returns the raw piece text of a single token, including any
	// word-boundary marker.
	Piece(id uint32) (string, error)
}

// StartsNewWord reports whether a decoded piece begins a new word.
func StartsNewWord(piece string) bool {
	return strings.HasPrefix(piece, WordStartMarker) || strings.HasPrefix(piece, " ")
}

// PieceText strips the word-boundary marker from a piece, leaving the
// surface text contributed to the word.
func PieceText(piece string) string {
	return strings.TrimSpace(strings.ReplaceAll(piece, WordStartMarker, " "))
}

// HFTokenizerConfig holds the configuration for the HuggingFace tokenizer.
type HFTokenizerConfig struct {
	HuggingFaceToken   string `json:"huggingFaceToken"`
	TokenizersCacheDir string `json:"tokenizersCacheDir"` // Directory for caching tokenizers
}

// DefaultHFTokenizerConfig returns a default configuration for the
// HuggingFace tokenizer.
func DefaultHFTokenizerConfig() *HFTokenizerConfig {
	return &HFTokenizerConfig{
		HuggingFaceToken:   "",
		TokenizersCacheDir: getTokenizerCacheDir(),
	}
}

// CachedHFTokenizer loads per-model tokenizers through bindings to
// HuggingFace's rust tokenizer, holding them in an LRU cache.
type CachedHFTokenizer struct {
	cfg   tokenizers.TokenizerConfigOption
	cache *lru.Cache[string, *tokenizers.Tokenizer]
	group singleflight.Group
}

// NewCachedHFTokenizer creates a new instance of CachedHFTokenizer with the
// provided configuration.
func NewCachedHFTokenizer(config *HFTokenizerConfig) (*CachedHFTokenizer, error) {
	if config == nil {
		config = DefaultHFTokenizerConfig()
	}

	var cfg tokenizers.TokenizerConfigOption

	if config.TokenizersCacheDir != "" {
		cfg = tokenizers.WithCacheDir(config.TokenizersCacheDir)
	}
	if config.HuggingFaceToken != "" {
		cfg = tokenizers.WithAuthToken(config.HuggingFaceToken)
	}

	tokenizersCache, err := lru.New[string, *tokenizers.Tokenizer](tokenizersCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer cache: %w", err)
	}

	return &CachedHFTokenizer{
		cfg:   cfg,
		cache: tokenizersCache,
	}, nil
}

func (t *CachedHFTokenizer) getTokenizer(modelName string) (*tokenizers.Tokenizer, error) {
	tokenizer, ok := t.cache.Get(modelName)
	if !ok {
		result, err, shared := t.group.Do(modelName, func() (any, error) {
			return tokenizers.FromPretrained(modelName, t.cfg)
		})
		if err != nil {
			return nil, err
		}

		tokenizer, ok = result.(*tokenizers.Tokenizer)
		if !ok {
			return nil, fmt.Errorf("unexpected tokenizer type from singleflight result")
		}

		if !shared {
			// Only add to cache if this goroutine actually loaded the tokenizer
			t.cache.Add(modelName, tokenizer)
		}
	}
	return tokenizer, nil
}

// ForModel binds the loader to a single model and returns a Tokenizer
// satisfying the engine contract. Encoded inputs and decoded pieces are
// cached per model.
func (t *CachedHFTokenizer) ForModel(modelName string) (Tokenizer, error) {
	encodeCache, err := lru.New[string, []uint32](encodeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encode cache: %w", err)
	}

	pieceCache, err := lru.New[uint32, string](pieceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize piece cache: %w", err)
	}

	return &modelTokenizer{
		parent:      t,
		modelName:   modelName,
		encodeCache: encodeCache,
		pieceCache:  pieceCache,
	}, nil
}

// modelTokenizer implements Tokenizer for a fixed model.
type modelTokenizer struct {
	parent      *CachedHFTokenizer
	modelName   string
	encodeCache *lru.Cache[string, []uint32]
	pieceCache  *lru.Cache[uint32, string]
}

var _ Tokenizer = &modelTokenizer{}

// Encode converts a string into token ids.
func (t *modelTokenizer) Encode(input string) ([]uint32, error) {
	if input == "" {
		return nil, nil
	}

	if ids, ok := t.encodeCache.Get(input); ok {
		return ids, nil
	}

	tokenizer, err := t.parent.getTokenizer(t.modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer for model %q: %w", t.modelName, err)
	}

	ids, _ := tokenizer.Encode(input, false)
	t.encodeCache.Add(input, ids)
	return ids, nil
}

// Decode converts token ids back into text.
func (t *modelTokenizer) Decode(tokens []uint32) (string, error) {
	tokenizer, err := t.parent.getTokenizer(t.modelName)
	if err != nil {
		return "", fmt.Errorf("failed to get tokenizer for model %q: %w", t.modelName, err)
	}

	return tokenizer.Decode(tokens, true), nil
}

// Piece returns the raw piece text of a single token.
func (t *modelTokenizer) Piece(id uint32) (string, error) {
	if piece, ok := t.pieceCache.Get(id); ok {
		return piece, nil
	}

	tokenizer, err := t.parent.getTokenizer(t.modelName)
	if err != nil {
		return "", fmt.Errorf("failed to get tokenizer for model %q: %w", t.modelName, err)
	}

	piece := tokenizer.Decode([]uint32{id}, false)
	t.pieceCache.Add(id, piece)
	return piece, nil
}

// getTokenizerCacheDir returns the absolute path to the tokenizer cache directory relative to the project root.
func getTokenizerCacheDir() string {
	_, filename, _, _ := runtime.Caller(0) // this file
	base := filepath.Dir(filename)
	return filepath.Join(base, "..", "..", "bin")
}
