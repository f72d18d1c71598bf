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

package prediction_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanwrite/prediction-engine/pkg/prediction"
	"github.com/scanwrite/prediction-engine/pkg/tokenization"
)

// mockTokenizer maps whole words to single word-start pieces and exposes a
// fixed piece vocabulary indexed by token id.
type mockTokenizer struct {
	pieces []string
}

var _ tokenization.Tokenizer = &mockTokenizer{}

func (m *mockTokenizer) Encode(input string) ([]uint32, error) {
	if input == "" {
		return nil, nil
	}

	var tokens []uint32
	for _, word := range strings.Fields(input) {
		id, err := m.lookup(tokenization.WordStartMarker + word)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, id)
	}

	return tokens, nil
}

func (m *mockTokenizer) Decode(tokens []uint32) (string, error) {
	var sb strings.Builder
	for _, id := range tokens {
		if int(id) >= len(m.pieces) {
			return "", fmt.Errorf("unknown token %d", id)
		}
		sb.WriteString(strings.ReplaceAll(m.pieces[id], tokenization.WordStartMarker, " "))
	}

	return strings.TrimSpace(sb.String()), nil
}

func (m *mockTokenizer) Piece(id uint32) (string, error) {
	if int(id) >= len(m.pieces) {
		return "", fmt.Errorf("unknown token %d", id)
	}

	return m.pieces[id], nil
}

func (m *mockTokenizer) lookup(piece string) (uint32, error) {
	for id, p := range m.pieces {
		if p == piece {
			return uint32(id), nil
		}
	}

	return 0, fmt.Errorf("piece %q not in vocabulary", piece)
}

// mockOracle serves fixed distributions keyed by the token sequence, with
// an optional failure after a number of calls.
type mockOracle struct {
	dists       map[string][]float64
	defaultDist []float64
	calls       int
	failAfter   int // fail on call number failAfter+1 and later; 0 disables
}

func (m *mockOracle) Predict(_ context.Context, tokens []uint32) ([]float64, error) {
	m.calls++
	if m.failAfter > 0 && m.calls > m.failAfter {
		return nil, fmt.Errorf("model backend unavailable")
	}

	if dist, ok := m.dists[fmt.Sprint(tokens)]; ok {
		return dist, nil
	}

	return m.defaultDist, nil
}

// newNextWordFixture builds a tokenizer and oracle for next-word tests over
// the context "the cat": sat 0.5, ran 0.3, on 0.2. Unlisted sequences get a
// boundary-only distribution, completing whatever candidate queries them.
func newNextWordFixture() (*mockTokenizer, *mockOracle) {
	tokenizer := &mockTokenizer{
		pieces: []string{"▁the", "▁cat", "▁sat", "▁ran", "▁on"},
	}
	oracle := &mockOracle{
		dists: map[string][]float64{
			"[0 1]": {0, 0, 0.5, 0.3, 0.2},
		},
		defaultDist: []float64{1, 0, 0, 0, 0},
	}

	return tokenizer, oracle
}

func TestTopKWordsNextWord(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	got, err := engine.TopKWords(t.Context(), "the cat ", 2)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "sat", got[0].Text)
	assert.InDelta(t, 0.5, got[0].Probability, 1e-9)
	assert.Equal(t, 1, got[0].TokenCount)
	assert.Equal(t, "ran", got[1].Text)
	assert.InDelta(t, 0.3, got[1].Probability, 1e-9)
}

func TestTopKWordsCompletion(t *testing.T) {
	tokenizer := &mockTokenizer{
		pieces: []string{"▁he", "llo", "lp", "▁world", "▁the"},
	}
	oracle := &mockOracle{
		dists: map[string][]float64{
			"[0]": {0, 0.4, 0.3, 0.2, 0.1},
		},
		defaultDist: []float64{0, 0, 0, 0, 1},
	}
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	got, err := engine.TopKWords(t.Context(), "he", 3)
	require.NoError(t, err)

	require.Len(t, got, 3)
	for _, p := range got {
		assert.True(t, strings.HasPrefix(p.Text, "he"),
			"completion %q must extend the typed prefix", p.Text)
	}
	texts := make([]string, 0, len(got))
	for _, p := range got {
		texts = append(texts, p.Text)
	}
	assert.ElementsMatch(t, []string{"he", "hello", "help"}, texts)
	assert.NotContains(t, texts, "world")
}

func TestTopKWordsOrderedByScore(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	got, err := engine.TopKWords(t.Context(), "the cat ", 3)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Probability, got[i].Probability,
			"single-token words must come back most likely first")
	}
}

func TestTopKWordsNoDuplicates(t *testing.T) {
	// Two token paths spell "hello": ▁he+llo and ▁he+l+lo.
	tokenizer := &mockTokenizer{
		pieces: []string{"▁he", "llo", "l", "lo", "▁x"},
	}
	oracle := &mockOracle{
		dists: map[string][]float64{
			"[0]":   {0, 0.5, 0.3, 0, 0.1},
			"[0 2]": {0, 0, 0, 0.9, 0.1},
		},
		defaultDist: []float64{0, 0, 0, 0, 1},
	}
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	got, err := engine.TopKWords(t.Context(), "he", 5)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range got {
		assert.False(t, seen[p.Text], "duplicate prediction %q", p.Text)
		seen[p.Text] = true
	}
	assert.True(t, seen["hello"])
}

func TestTopKWordsIdempotent(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	first, err := engine.TopKWords(t.Context(), "the cat ", 2)
	require.NoError(t, err)
	second, err := engine.TopKWords(t.Context(), "the cat ", 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTopKWordsZeroProbabilityExcluded(t *testing.T) {
	tokenizer := &mockTokenizer{
		pieces: []string{"▁ctx", "▁a", "▁b"},
	}
	oracle := &mockOracle{
		dists: map[string][]float64{
			"[0]": {0, 0.7, 0},
		},
		defaultDist: []float64{1, 0, 0},
	}
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	got, stats, err := engine.TopKWordsWithStats(t.Context(), "ctx ", 2)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, prediction.StateExhausted, stats.TerminalState)
}

func TestTopKWordsIterationBound(t *testing.T) {
	// Continuation-only vocabulary: no boundary token ever appears, so no
	// word can complete and the safety bound must fire.
	tokenizer := &mockTokenizer{
		pieces: []string{"▁a", "x", "y"},
	}
	oracle := &mockOracle{
		defaultDist: []float64{0, 0.6, 0.4},
	}
	cfg := prediction.DefaultConfig()
	cfg.BeamWidth = 2
	cfg.IterationFactor = 2
	engine, err := prediction.NewEngine(cfg, tokenizer, oracle)
	require.NoError(t, err)

	got, stats, err := engine.TopKWordsWithStats(t.Context(), "a", 1)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, prediction.StateBounded, stats.TerminalState)
	assert.Equal(t, 4, stats.Iterations, "bound is k * beamWidth * iterationFactor")
}

func TestTopKWordsMaxWordLength(t *testing.T) {
	tokenizer := &mockTokenizer{
		pieces: []string{"▁a", "x", "y"},
	}
	oracle := &mockOracle{
		defaultDist: []float64{0, 0.6, 0.4},
	}
	cfg := prediction.DefaultConfig()
	cfg.BeamWidth = 2
	cfg.MaxWordLength = 2
	engine, err := prediction.NewEngine(cfg, tokenizer, oracle)
	require.NoError(t, err)

	got, stats, err := engine.TopKWordsWithStats(t.Context(), "a", 1)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, prediction.StateExhausted, stats.TerminalState)
}

func TestTopKWordsBeamBounded(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	cfg := prediction.DefaultConfig()
	cfg.BeamWidth = 2
	engine, err := prediction.NewEngine(cfg, tokenizer, oracle)
	require.NoError(t, err)

	_, stats, err := engine.TopKWordsWithStats(t.Context(), "the cat ", 3)
	require.NoError(t, err)

	assert.LessOrEqual(t, stats.MaxBeamSize, cfg.BeamWidth)
	assert.Positive(t, stats.Inferences)
}

func TestTopKWordsOracleFailureReturnsPartial(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	oracle.failAfter = 2
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	got, stats, err := engine.TopKWordsWithStats(t.Context(), "the cat ", 2)
	require.NoError(t, err, "oracle failures must not surface as errors")

	assert.Equal(t, prediction.StateAborted, stats.TerminalState)
	require.Len(t, got, 1)
	assert.Equal(t, "sat", got[0].Text)
}

func TestTopKWordsTokenizerFailure(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	_, err = engine.TopKWords(t.Context(), "zebra", 2)
	require.Error(t, err)
}

func TestTopKWordsNonPositiveK(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	got, err := engine.TopKWords(t.Context(), "the cat ", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, oracle.calls)
}

func TestNewEngineValidation(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()

	_, err := prediction.NewEngine(nil, nil, oracle)
	assert.Error(t, err)

	_, err = prediction.NewEngine(nil, tokenizer, nil)
	assert.Error(t, err)

	_, err = prediction.NewEngine(&prediction.Config{BeamWidth: 0, MaxWordLength: 1, IterationFactor: 1},
		tokenizer, oracle)
	assert.Error(t, err)
}
