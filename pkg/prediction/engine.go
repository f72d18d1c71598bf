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

// Package prediction implements word completion and next-word prediction
// for scanning text-entry surfaces. The engine runs a best-first beam
// search over the tokenizer's subword vocabulary, consulting a language
// model oracle for next-token distributions, and surfaces the most likely
// whole words for the current input.
package prediction

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"

	"github.com/scanwrite/prediction-engine/pkg/metrics"
	"github.com/scanwrite/prediction-engine/pkg/model"
	"github.com/scanwrite/prediction-engine/pkg/tokenization"
	"github.com/scanwrite/prediction-engine/pkg/utils/logging"
)

const (
	defaultBeamWidth             = 25
	defaultMaxWordLength         = 10
	defaultLengthPenaltyValue    = 5.0
	defaultLengthPenaltyExponent = -0.6
	defaultIterationFactor       = 10
)

// Config holds the configuration for the search Engine.
type Config struct {
	// BeamWidth bounds both the number of candidates kept on the beam and
	// the number of next tokens considered per expansion.
	BeamWidth int `json:"beamWidth"`
	// MaxWordLength bounds the number of tokens in a single word.
	// Candidates exceeding it are discarded.
	MaxWordLength int `json:"maxWordLength"`
	// LengthPenaltyValue is the additive constant (beta) of the length
	// penalty.
	LengthPenaltyValue float64 `json:"lengthPenaltyValue"`
	// LengthPenaltyExponent is the exponent (alpha) of the length penalty.
	// Negative values favor longer words; zero disables the penalty.
	LengthPenaltyExponent float64 `json:"lengthPenaltyExponent"`
	// IterationFactor scales the iteration safety bound:
	// k * BeamWidth * IterationFactor.
	IterationFactor int `json:"iterationFactor"`
	// EnableMetrics enables Prometheus metrics collection.
	EnableMetrics bool `json:"enableMetrics"`
}

// DefaultConfig returns a default Engine configuration.
func DefaultConfig() *Config {
	return &Config{
		BeamWidth:             defaultBeamWidth,
		MaxWordLength:         defaultMaxWordLength,
		LengthPenaltyValue:    defaultLengthPenaltyValue,
		LengthPenaltyExponent: defaultLengthPenaltyExponent,
		IterationFactor:       defaultIterationFactor,
	}
}

// TerminalState describes why a search session ended.
type TerminalState string

const (
	// StateDone means the requested number of words was found.
	StateDone TerminalState = "Done"
	// StateExhausted means the beam emptied before k words completed.
	StateExhausted TerminalState = "Exhausted"
	// StateBounded means the iteration safety bound was hit.
	StateBounded TerminalState = "Bounded"
	// StateAborted means the oracle failed mid-search; any words completed
	// before the failure are still returned.
	StateAborted TerminalState = "Aborted"
)

// Prediction is a single completed word surfaced by the engine.
type Prediction struct {
	// Text is the display text of the word, without any word-start marker.
	Text string
	// Probability is the oracle probability of the word's tokens given the
	// context.
	Probability float64
	// TokenCount is the number of subword tokens forming the word.
	TokenCount int
}

// SearchStats reports the work done by a single search session.
type SearchStats struct {
	Inferences    int
	Iterations    int
	MaxBeamSize   int
	TerminalState TerminalState
}

// Engine runs best-first beam searches over the subword vocabulary.
// It is stateless across searches and safe for concurrent use if the
// underlying tokenizer and oracle are.
type Engine struct {
	config    *Config
	tokenizer tokenization.Tokenizer
	oracle    model.Oracle
	ranker    Ranker
}

// NewEngine creates an Engine for the given tokenizer and oracle.
func NewEngine(config *Config, tokenizer tokenization.Tokenizer, oracle model.Oracle) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if tokenizer == nil {
		return nil, fmt.Errorf("no tokenizer provided")
	}
	if oracle == nil {
		return nil, fmt.Errorf("no oracle provided")
	}
	if config.BeamWidth <= 0 || config.MaxWordLength <= 0 || config.IterationFactor <= 0 {
		return nil, fmt.Errorf("beam width, max word length and iteration factor must be positive")
	}

	ranker, err := NewRanker(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ranker: %w", err)
	}

	if config.EnableMetrics {
		metrics.Register()
	}

	return &Engine{
		config:    config,
		tokenizer: tokenizer,
		oracle:    oracle,
		ranker:    ranker,
	}, nil
}

// TopKWords returns up to k word predictions for the input text, most
// likely first.
func (e *Engine) TopKWords(ctx context.Context, text string, k int) ([]Prediction, error) {
	predictions, _, err := e.TopKWordsWithStats(ctx, text, k)
	return predictions, err
}

// TopKWordsWithStats runs a search session and additionally reports its
// statistics. Input ending in whitespace yields next-word predictions;
// otherwise the trailing partial word is completed. An oracle failure
// aborts the session and returns the words completed so far without error;
// a tokenizer failure is returned as an error.
func (e *Engine) TopKWordsWithStats(ctx context.Context, text string, k int) ([]Prediction, SearchStats, error) {
	traceLogger := klog.FromContext(ctx).V(logging.TRACE).WithName("prediction.Engine")

	if e.config.EnableMetrics {
		metrics.Searches.Inc()
		timer := prometheus.NewTimer(metrics.SearchLatency)
		defer timer.ObserveDuration()
	}

	stats := SearchStats{TerminalState: StateExhausted}
	if k <= 0 {
		return nil, stats, nil
	}

	wordContext, unfinished := Normalize(text)

	contextTokens, err := e.tokenizer.Encode(wordContext)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to encode context: %w", err)
	}

	session := newSearchSession()
	if err := e.seed(session, contextTokens, unfinished); err != nil {
		return nil, stats, err
	}

	maxIterations := k * e.config.BeamWidth * e.config.IterationFactor
	aborted := false

	for session.beam.Len() > 0 && session.completed.Len() < k && session.iterations < maxIterations {
		session.iterations++

		cand, _ := session.beam.Pop()
		if len(cand.tokens) > e.config.MaxWordLength {
			continue
		}

		sequence := concatTokens(contextTokens, cand.tokens)
		key := model.SequenceKey(sequence)
		session.pending.Delete(key)
		if session.explored.Has(key) {
			continue
		}
		session.explored.Insert(key)

		next, err := session.topNextTokens(ctx, e.oracle, key, sequence, e.config.BeamWidth)
		if err != nil {
			klog.FromContext(ctx).Error(err, "oracle failed, aborting search",
				"iterations", session.iterations, "completed", session.completed.Len())
			aborted = true
			break
		}

		if err := e.expand(session, contextTokens, cand, unfinished, next); err != nil {
			return nil, statsOf(session, StateAborted), err
		}

		session.pruneBeam(e.config.BeamWidth)
	}

	switch {
	case aborted:
		stats = statsOf(session, StateAborted)
	case session.completed.Len() >= k:
		stats = statsOf(session, StateDone)
	case session.beam.Len() == 0:
		stats = statsOf(session, StateExhausted)
	default:
		stats = statsOf(session, StateBounded)
		if e.config.EnableMetrics {
			metrics.IterationBoundHits.Inc()
		}
	}

	if e.config.EnableMetrics {
		metrics.Inferences.Add(float64(session.inferences))
	}

	predictions := e.ranker.Rank(session.completed, k)
	traceLogger.Info("search session finished", "state", stats.TerminalState,
		"words", len(predictions), "iterations", stats.Iterations,
		"inferences", stats.Inferences)

	return predictions, stats, nil
}

// seed pushes the initial candidate: an empty candidate for next-word
// prediction, or the encoded unfinished word for completion.
func (e *Engine) seed(session *searchSession, contextTokens []uint32, unfinished string) error {
	root := &candidate{}
	if unfinished != "" {
		tokens, err := e.tokenizer.Encode(unfinished)
		if err != nil {
			return fmt.Errorf("failed to encode unfinished word: %w", err)
		}

		root = &candidate{
			tokens:    tokens,
			text:      unfinished,
			normScore: normalizedScore(0, len(tokens), e.config),
		}
	}

	session.push(root, model.SequenceKey(concatTokens(contextTokens, root.tokens)))
	return nil
}

// expand grows a candidate by each of its top next tokens. A word-start
// token completes a non-empty candidate; any other token extends it when
// the extension stays consistent with the unfinished word.
func (e *Engine) expand(session *searchSession, contextTokens []uint32,
	cand *candidate, unfinished string, next []scoredToken,
) error {
	for _, tok := range next {
		piece, err := e.tokenizer.Piece(tok.id)
		if err != nil {
			return fmt.Errorf("failed to resolve piece for token %d: %w", tok.id, err)
		}

		pieceText := tokenization.PieceText(piece)
		if !isAlphabetic(pieceText) {
			continue
		}

		if tokenization.StartsNewWord(piece) {
			if cand.text != "" {
				// The word ended before this token.
				session.promote(cand)
				continue
			}
		} else if cand.text == "" {
			// A word cannot begin mid-token.
			continue
		}

		newCand := cand.extend(tok.id, pieceText, tok.prob, e.config)
		if !prefixCompatible(newCand.text, unfinished) {
			continue
		}

		newKey := model.SequenceKey(concatTokens(contextTokens, newCand.tokens))
		if session.pending.Has(newKey) || session.explored.Has(newKey) {
			continue
		}

		session.push(newCand, newKey)
	}

	return nil
}

// prefixCompatible reports whether a candidate text can still complete the
// unfinished word: one must be a prefix of the other.
func prefixCompatible(text, unfinished string) bool {
	return strings.HasPrefix(text, unfinished) || strings.HasPrefix(unfinished, text)
}

// isAlphabetic reports whether the piece text is non-empty and entirely
// letters.
func isAlphabetic(pieceText string) bool {
	if pieceText == "" {
		return false
	}

	for _, r := range pieceText {
		if !unicode.IsLetter(r) {
			return false
		}
	}

	return true
}

func statsOf(session *searchSession, state TerminalState) SearchStats {
	return SearchStats{
		Inferences:    session.inferences,
		Iterations:    session.iterations,
		MaxBeamSize:   session.maxBeamSize,
		TerminalState: state,
	}
}
