// Copyright 2025 The ScanWrite Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package events carries text changes and prediction lists between
// text-entry surfaces and the prediction server over ZMQ PUB/SUB.
//
// Messages are three frames: the topic, a monotonically increasing
// big-endian uint64 sequence number, and a msgpack payload. Topics are
// "text@<surface-id>" for input changes and "predictions@<surface-id>"
// for the resulting word lists.
package events

import (
	"fmt"
	"strings"
)

const (
	// TextTopicPrefix prefixes topics carrying TextChanged events.
	TextTopicPrefix = "text@"
	// PredictionsTopicPrefix prefixes topics carrying Predictions events.
	PredictionsTopicPrefix = "predictions@"
)

// TextChanged is published by a surface whenever its input changes.
// It is encoded as an array to keep the wire format positional.
type TextChanged struct {
	_ struct{} `msgpack:",array"`
	// Text is the full surface text.
	Text string
	// CursorPosition is the rune offset of the cursor; negative means end
	// of text.
	CursorPosition int
}

// Predictions is published by the server with the word list for a surface.
type Predictions struct {
	_     struct{} `msgpack:",array"`
	Words []string
}

// TextTopic returns the topic a surface publishes its text changes on.
func TextTopic(surfaceID string) string {
	return TextTopicPrefix + surfaceID
}

// PredictionsTopic returns the topic a surface receives predictions on.
func PredictionsTopic(surfaceID string) string {
	return PredictionsTopicPrefix + surfaceID
}

// SurfaceFromTopic extracts the surface identifier from a topic of either
// kind.
func SurfaceFromTopic(topic string) (string, error) {
	for _, prefix := range []string{TextTopicPrefix, PredictionsTopicPrefix} {
		if rest, ok := strings.CutPrefix(topic, prefix); ok {
			if rest == "" {
				return "", fmt.Errorf("topic %q carries no surface identifier", topic)
			}
			return rest, nil
		}
	}

	return "", fmt.Errorf("topic %q has no recognized prefix", topic)
}
