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

import "math"

// candidate is a partial word under expansion: the word-local token
// sequence, its accumulated display text, and its scores. Candidates are
// immutable; extend produces a new one.
type candidate struct {
	// tokens are the word-local tokens appended after the context, not
	// including any boundary token that would terminate the word.
	tokens []uint32
	// text is the display text accumulated from the piece texts.
	text string
	// rawNLL is the cumulative negative log-probability of tokens.
	rawNLL float64
	// normScore is rawNLL adjusted by the length penalty. Lower is better.
	normScore float64
}

// extend returns a new candidate with one more token. prob must be the
// oracle probability of the token given the sequence so far, in (0, 1].
func (c *candidate) extend(id uint32, pieceText string, prob float64, cfg *Config) *candidate {
	tokens := make([]uint32, len(c.tokens)+1)
	copy(tokens, c.tokens)
	tokens[len(c.tokens)] = id

	rawNLL := c.rawNLL - math.Log(prob)

	return &candidate{
		tokens:    tokens,
		text:      c.text + pieceText,
		rawNLL:    rawNLL,
		normScore: normalizedScore(rawNLL, len(tokens), cfg),
	}
}

// normalizedScore applies the length penalty to a cumulative negative
// log-probability:
//
//	score = rawNLL * (beta+length)^alpha / (beta+1)^alpha
//
// With a negative exponent the penalty shrinks as words grow, counteracting
// the bias of cumulative NLL toward short words.
func normalizedScore(rawNLL float64, length int, cfg *Config) float64 {
	penalty := math.Pow(cfg.LengthPenaltyValue+float64(length), cfg.LengthPenaltyExponent) /
		math.Pow(cfg.LengthPenaltyValue+1, cfg.LengthPenaltyExponent)

	return rawNLL * penalty
}

// completedWord is a candidate promoted on a word boundary.
type completedWord struct {
	tokens      []uint32
	text        string
	probability float64
	normScore   float64
}

// candidateLess orders candidates best-first by normalized score.
func candidateLess(a, b *candidate) bool {
	return a.normScore < b.normScore
}

// completedLess orders completed words best-first by normalized score.
func completedLess(a, b *completedWord) bool {
	return a.normScore < b.normScore
}
