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

// Package fallback provides a static word dictionary used to pad
// prediction lists when the engine returns fewer words than the surface
// needs, or none at all.
package fallback

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
	"k8s.io/apimachinery/pkg/util/sets"
)

// defaultMaxWords bounds how many dictionary entries are loaded from file.
const defaultMaxWords = 50000

// Config holds the configuration for loading a Dictionary from file.
type Config struct {
	// WordsFile is a path to a newline-separated word list, most frequent
	// first. Lines may carry a frequency column after the word; it is
	// ignored.
	WordsFile string `json:"wordsFile"`
	// MaxWords bounds how many entries are loaded.
	MaxWords int `json:"maxWords"`
}

// DefaultConfig returns a default dictionary loading configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxWords: defaultMaxWords,
	}
}

// Dictionary is a frequency-ordered word list with prefix lookup.
// It is immutable after construction and safe for concurrent use.
type Dictionary struct {
	trie *patricia.Trie
	// words preserves load order, which is frequency order for word lists
	// sorted most frequent first.
	words []string
}

// NewDictionary builds a Dictionary from an in-memory word list, most
// frequent first. Words are lowercased; duplicates and empties are dropped.
func NewDictionary(words []string) *Dictionary {
	d := &Dictionary{
		trie: patricia.NewTrie(),
	}

	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" || d.trie.Get(patricia.Prefix(word)) != nil {
			continue
		}

		d.trie.Insert(patricia.Prefix(word), len(d.words))
		d.words = append(d.words, word)
	}

	return d
}

// LoadDictionary reads a word list from the configured file.
func LoadDictionary(config *Config) (*Dictionary, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WordsFile == "" {
		return nil, fmt.Errorf("no words file configured")
	}

	maxWords := config.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	file, err := os.Open(config.WordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open words file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() && len(words) < maxWords {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		words = append(words, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read words file: %w", err)
	}

	return NewDictionary(words), nil
}

// Len returns the number of words held.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// PrefixMatches returns up to limit words starting with prefix in
// frequency order, skipping excluded words.
func (d *Dictionary) PrefixMatches(prefix string, limit int, exclude sets.Set[string]) []string {
	if limit <= 0 {
		return nil
	}

	prefix = strings.ToLower(prefix)

	type match struct {
		word string
		rank int
	}
	var matches []match
	_ = d.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		word := string(p)
		if exclude.Has(word) {
			return nil
		}

		rank, _ := item.(int)
		matches = append(matches, match{word: word, rank: rank})
		return nil
	})

	// Subtree visits are lexicographic; restore frequency order.
	out := make([]string, 0, limit)
	for len(out) < limit {
		best := -1
		for i, m := range matches {
			if m.rank < 0 {
				continue
			}
			if best < 0 || m.rank < matches[best].rank {
				best = i
			}
		}
		if best < 0 {
			break
		}

		out = append(out, matches[best].word)
		matches[best].rank = -1
	}

	return out
}

// Fill returns up to n of the most frequent words, skipping excluded words.
func (d *Dictionary) Fill(n int, exclude sets.Set[string]) []string {
	out := make([]string, 0, n)
	for _, word := range d.words {
		if len(out) >= n {
			break
		}
		if exclude.Has(word) {
			continue
		}

		out = append(out, word)
	}

	return out
}

// Pad returns up to n words for padding a prediction list: prefix matches
// for the unfinished word first, then the most frequent words. The exclude
// set is extended with every word returned.
func (d *Dictionary) Pad(prefix string, n int, exclude sets.Set[string]) []string {
	out := make([]string, 0, n)

	if prefix != "" {
		for _, word := range d.PrefixMatches(prefix, n, exclude) {
			out = append(out, word)
			exclude.Insert(word)
		}
	}

	for _, word := range d.Fill(n-len(out), exclude) {
		out = append(out, word)
		exclude.Insert(word)
	}

	return out
}
