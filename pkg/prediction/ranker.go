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
	"fmt"

	"github.com/scanwrite/prediction-engine/pkg/utils"
)

// RankingStrategy defines the ranking strategy type.
type RankingStrategy string

const (
	// NormalizedScoreStrategy ranks completed words by their
	// length-normalized score, best first.
	NormalizedScoreStrategy RankingStrategy = "NormalizedScore"
)

// RankerConfig holds the configuration for the Ranker.
type RankerConfig struct {
	Strategy RankingStrategy `json:"strategy"`
}

// DefaultRankerConfig returns a default RankerConfig.
func DefaultRankerConfig() *RankerConfig {
	return &RankerConfig{
		Strategy: NormalizedScoreStrategy,
	}
}

// Ranker orders the completed words of a search session into the final
// prediction list.
type Ranker interface {
	// Strategy returns the ranking strategy used.
	Strategy() RankingStrategy
	// Rank drains up to k words from the pool, best first.
	Rank(pool *utils.Heap[*completedWord], k int) []Prediction
}

// NewRanker creates a Ranker for the configured strategy.
func NewRanker(config *RankerConfig) (Ranker, error) {
	if config == nil {
		config = DefaultRankerConfig()
	}

	switch config.Strategy {
	case NormalizedScoreStrategy:
		return &normalizedScoreRanker{}, nil
	default:
		return nil, fmt.Errorf("unsupported ranking strategy: %s", config.Strategy)
	}
}

// normalizedScoreRanker ranks by the length-normalized score the search
// itself optimizes for.
type normalizedScoreRanker struct{}

var _ Ranker = &normalizedScoreRanker{}

func (r *normalizedScoreRanker) Strategy() RankingStrategy {
	return NormalizedScoreStrategy
}

func (r *normalizedScoreRanker) Rank(pool *utils.Heap[*completedWord], k int) []Prediction {
	words := make([]*completedWord, 0, k)
	for len(words) < k {
		word, ok := pool.Pop()
		if !ok {
			break
		}
		words = append(words, word)
	}

	return utils.SliceMap(words, func(w *completedWord) Prediction {
		return Prediction{
			Text:        w.text,
			Probability: w.probability,
			TokenCount:  len(w.tokens),
		}
	})
}
