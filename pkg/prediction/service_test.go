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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanwrite/prediction-engine/pkg/fallback"
	"github.com/scanwrite/prediction-engine/pkg/prediction"
)

const callbackTimeout = 5 * time.Second

func testFallbackDictionary() *fallback.Dictionary {
	return fallback.NewDictionary([]string{
		"the", "be", "to", "of", "and", "a", "in", "that", "have", "i",
		"it", "for",
	})
}

func newServiceForTesting(t *testing.T, cfg *prediction.ServiceConfig) (*prediction.Service, chan []string) {
	t.Helper()

	tokenizer, oracle := newNextWordFixture()
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	delivered := make(chan []string, 16)
	service, err := prediction.NewService(cfg, engine, testFallbackDictionary(),
		func(words []string) {
			delivered <- words
		})
	require.NoError(t, err)

	return service, delivered
}

func awaitWords(t *testing.T, delivered chan []string) []string {
	t.Helper()
	select {
	case words := <-delivered:
		return words
	case <-time.After(callbackTimeout):
		t.Fatal("timed out waiting for prediction delivery")
		return nil
	}
}

func TestServiceDeliversPaddedUppercaseWords(t *testing.T) {
	service, delivered := newServiceForTesting(t, &prediction.ServiceConfig{WordCount: 5})

	service.Start(t.Context())
	defer service.Stop()

	service.RequestPredictions("the cat ", -1)

	words := awaitWords(t, delivered)
	require.Len(t, words, 5, "short engine results must be padded to the word count")
	assert.Equal(t, "SAT", words[0])
	assert.Equal(t, "RAN", words[1])
	for _, w := range words {
		assert.NotEmpty(t, w)
		assert.Equal(t, strings.ToUpper(w), w)
	}
}

func TestServiceCoalescesPendingRequests(t *testing.T) {
	service, delivered := newServiceForTesting(t, &prediction.ServiceConfig{WordCount: 3})

	// Submitted before Start: only the newest request may survive.
	service.RequestPredictions("the ", -1)
	service.RequestPredictions("the c", -1)
	service.RequestPredictions("the cat ", -1)

	service.Start(t.Context())
	defer service.Stop()

	words := awaitWords(t, delivered)
	assert.Equal(t, "SAT", words[0], "only the latest request should be served")

	select {
	case extra := <-delivered:
		t.Fatalf("superseded request was served: %v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceSurvivesEngineFailure(t *testing.T) {
	service, delivered := newServiceForTesting(t, &prediction.ServiceConfig{WordCount: 4})

	service.Start(t.Context())
	defer service.Stop()

	// "zebra" is not in the mock vocabulary, so the engine fails and the
	// whole list comes from the dictionary.
	service.RequestPredictions("zebra", -1)
	words := awaitWords(t, delivered)
	require.Len(t, words, 4)
	assert.Equal(t, []string{"THE", "BE", "TO", "OF"}, words)

	// The worker must still be alive for the next request.
	service.RequestPredictions("the cat ", -1)
	words = awaitWords(t, delivered)
	assert.Equal(t, "SAT", words[0])
}

func TestServiceCursorTruncation(t *testing.T) {
	service, delivered := newServiceForTesting(t, &prediction.ServiceConfig{WordCount: 2})

	service.Start(t.Context())
	defer service.Stop()

	// Only the text before the cursor counts: "the cat sleeps"[:8] is
	// "the cat ".
	service.RequestPredictions("the cat sleeps", 8)
	words := awaitWords(t, delivered)
	assert.Equal(t, "SAT", words[0])
}

func TestNewServiceValidation(t *testing.T) {
	tokenizer, oracle := newNextWordFixture()
	engine, err := prediction.NewEngine(nil, tokenizer, oracle)
	require.NoError(t, err)

	_, err = prediction.NewService(nil, nil, nil, func([]string) {})
	assert.Error(t, err)

	_, err = prediction.NewService(nil, engine, nil, nil)
	assert.Error(t, err)

	_, err = prediction.NewService(&prediction.ServiceConfig{WordCount: 0}, engine, nil,
		func([]string) {})
	assert.Error(t, err)
}
