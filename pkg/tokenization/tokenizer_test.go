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

//nolint:testpackage // need to test internal types
package tokenization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This should be skipped in fast unit tests.
const testModelName = "google-bert/bert-base-uncased"

func TestStartsNewWord(t *testing.T) {
	tests := []struct {
		name  string
		piece string
		want  bool
	}{
		{name: "marker prefix", piece: WordStartMarker + "hello", want: true},
		{name: "space prefix", piece: " hello", want: true},
		{name: "continuation", piece: "llo", want: false},
		{name: "empty", piece: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StartsNewWord(tt.piece))
		})
	}
}

func TestPieceText(t *testing.T) {
	tests := []struct {
		name  string
		piece string
		want  string
	}{
		{name: "marker stripped", piece: WordStartMarker + "hello", want: "hello"},
		{name: "continuation untouched", piece: "llo", want: "llo"},
		{name: "bare marker", piece: WordStartMarker, want: ""},
		{name: "space prefix", piece: " cat", want: "cat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PieceText(tt.piece))
		})
	}
}

func TestModelTokenizer_Encode(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping tokenizer integration test in short mode")
	}

	loader, err := NewCachedHFTokenizer(&HFTokenizerConfig{
		TokenizersCacheDir: t.TempDir(),
	})
	require.NoError(t, err)

	tokenizer, err := loader.ForModel(testModelName)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{name: "simple text", input: "hello world"},
		{name: "empty string", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenIds, err := tokenizer.Encode(tt.input)
			assert.NoError(t, err)

			if tt.input == "" {
				assert.Empty(t, tokenIds)
				return
			}

			require.NotEmpty(t, tokenIds)

			// Round-trip through Decode and Piece.
			text, err := tokenizer.Decode(tokenIds)
			assert.NoError(t, err)
			assert.NotEmpty(t, text)

			piece, err := tokenizer.Piece(tokenIds[0])
			assert.NoError(t, err)
			assert.NotEmpty(t, piece)
		})
	}
}

func TestModelTokenizer_EncodeCached(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping tokenizer integration test in short mode")
	}

	loader, err := NewCachedHFTokenizer(&HFTokenizerConfig{
		TokenizersCacheDir: t.TempDir(),
	})
	require.NoError(t, err)

	tokenizer, err := loader.ForModel(testModelName)
	require.NoError(t, err)

	input := "test input"

	// First call loads the tokenizer; second call hits the encode cache.
	tokenIds1, err1 := tokenizer.Encode(input)
	require.NoError(t, err1)

	tokenIds2, err2 := tokenizer.Encode(input)
	require.NoError(t, err2)

	assert.Equal(t, tokenIds1, tokenIds2)
}

func TestModelTokenizer_InvalidModel(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping tokenizer integration test in short mode")
	}

	loader, err := NewCachedHFTokenizer(&HFTokenizerConfig{
		TokenizersCacheDir: t.TempDir(),
	})
	require.NoError(t, err)

	tokenizer, err := loader.ForModel("non-existent/model")
	require.NoError(t, err)

	tokenIds, err := tokenizer.Encode("test")
	assert.Error(t, err)
	assert.Nil(t, tokenIds)
}
