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
	"math"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/scanwrite/prediction-engine/pkg/model"
	"github.com/scanwrite/prediction-engine/pkg/utils"
)

// scoredToken pairs a vocabulary token with its oracle probability.
type scoredToken struct {
	id   uint32
	prob float64
}

// searchSession holds the mutable state of a single best-first search:
// the beam, the completed-word pool, the de-duplication sets, and a
// per-session cache of oracle distributions keyed by sequence key.
type searchSession struct {
	beam      *utils.Heap[*candidate]
	completed *utils.Heap[*completedWord]

	// completedTexts de-duplicates promotions by display text; distinct
	// token paths can spell the same word.
	completedTexts sets.Set[string]
	// explored holds sequence keys already expanded; pending holds keys
	// currently on the beam. Together they prevent revisits and cycles.
	explored sets.Set[uint64]
	pending  sets.Set[uint64]

	probCache map[uint64][]scoredToken

	iterations  int
	inferences  int
	maxBeamSize int
}

func newSearchSession() *searchSession {
	return &searchSession{
		beam:           utils.NewHeap(candidateLess),
		completed:      utils.NewHeap(completedLess),
		completedTexts: sets.New[string](),
		explored:       sets.New[uint64](),
		pending:        sets.New[uint64](),
		probCache:      map[uint64][]scoredToken{},
	}
}

// promote moves a candidate into the completed pool. The completed-word
// probability is the exponentiated cumulative log-probability of the word's
// tokens, without the boundary token that triggered promotion. Empty or
// already-seen texts are dropped.
func (s *searchSession) promote(cand *candidate) {
	if cand.text == "" || s.completedTexts.Has(cand.text) {
		return
	}

	s.completedTexts.Insert(cand.text)
	s.completed.Push(&completedWord{
		tokens:      cand.tokens,
		text:        cand.text,
		probability: math.Exp(-cand.rawNLL),
		normScore:   cand.normScore,
	})
}

// push adds a candidate to the beam and marks its key pending.
func (s *searchSession) push(cand *candidate, key uint64) {
	s.beam.Push(cand)
	s.pending.Insert(key)
}

// pruneBeam drops all but the best width candidates and records the beam
// size the iteration settled on.
func (s *searchSession) pruneBeam(width int) {
	if s.beam.Len() > width {
		s.beam.Rebuild(s.beam.NSmallest(width))
	}

	if s.beam.Len() > s.maxBeamSize {
		s.maxBeamSize = s.beam.Len()
	}
}

// topNextTokens returns the best next tokens for a sequence, at most width
// of them, excluding tokens with non-positive or non-finite probability.
// Distributions are cached per session so re-expansions of a shared prefix
// cost nothing.
func (s *searchSession) topNextTokens(ctx context.Context, oracle model.Oracle,
	key uint64, tokens []uint32, width int,
) ([]scoredToken, error) {
	if cached, ok := s.probCache[key]; ok {
		return cached, nil
	}

	dist, err := oracle.Predict(ctx, tokens)
	if err != nil {
		return nil, err
	}
	s.inferences++

	top := topTokens(dist, width)
	s.probCache[key] = top
	return top, nil
}

// topTokens selects the width highest-probability tokens from a
// distribution, descending.
func topTokens(dist []float64, width int) []scoredToken {
	scored := make([]scoredToken, 0, len(dist))
	for id, prob := range dist {
		if prob <= 0 || math.IsNaN(prob) || math.IsInf(prob, 0) {
			continue
		}
		scored = append(scored, scoredToken{id: uint32(id), prob: prob})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].prob > scored[j].prob
	})

	if len(scored) > width {
		scored = scored[:width]
	}

	return scored
}

// concatTokens returns a fresh slice holding context followed by word.
func concatTokens(context, word []uint32) []uint32 {
	out := make([]uint32, 0, len(context)+len(word))
	out = append(out, context...)
	out = append(out, word...)
	return out
}
