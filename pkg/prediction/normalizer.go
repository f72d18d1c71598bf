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
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRegex    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`[ \t]+`)
)

// Clean lowercases and NFC-normalizes text, strips punctuation and symbols,
// and collapses runs of spaces and tabs. Language models for text entry are
// trained on cleaned text, so the same cleaning is applied before encoding.
func Clean(text string) string {
	text = strings.ToLower(text)
	text = norm.NFC.String(text)
	text = nonWordRegex.ReplaceAllString(text, "")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return text
}

// Normalize splits cleaned input into the completed context and the
// unfinished word being typed. Input ending in whitespace has no unfinished
// word; otherwise everything after the last whitespace is the unfinished
// word.
func Normalize(text string) (context, unfinished string) {
	cleaned := Clean(text)
	if cleaned == "" {
		return "", ""
	}

	if trailing := cleaned[len(cleaned)-1]; trailing == ' ' || trailing == '\t' || trailing == '\n' {
		return strings.TrimSpace(cleaned), ""
	}

	idx := strings.LastIndexAny(cleaned, " \t\n")
	if idx < 0 {
		return "", cleaned
	}

	return strings.TrimSpace(cleaned[:idx]), cleaned[idx+1:]
}
