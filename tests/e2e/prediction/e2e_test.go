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

//nolint:testpackage // allow tests to run in the same package
package e2e

import (
	"time"
)

const deliveryTimeout = 5 * time.Second

// TestSearchOrdering runs a search through the full stack and verifies the
// ranked output.
func (s *PredictionSuite) TestSearchOrdering() {
	predictions, err := s.engine.TopKWords(s.ctx, "the cat ", 2)
	s.Require().NoError(err)

	s.Require().Len(predictions, 2)
	s.Equal("sat", predictions[0].Text)
	s.InDelta(0.5, predictions[0].Probability, 1e-9)
	s.Equal("ran", predictions[1].Text)
	s.InDelta(0.3, predictions[1].Probability, 1e-9)
}

// TestDistributionCacheWarm verifies that a repeated search is served from
// the Redis-backed distribution store without new oracle calls.
func (s *PredictionSuite) TestDistributionCacheWarm() {
	_, err := s.engine.TopKWords(s.ctx, "the cat ", 2)
	s.Require().NoError(err)

	coldCalls := s.oracle.callCount()
	s.Require().Positive(coldCalls)
	s.Require().NotEmpty(s.server.Keys(), "distributions should be admitted to Redis")

	predictions, err := s.engine.TopKWords(s.ctx, "the cat ", 2)
	s.Require().NoError(err)
	s.Require().Len(predictions, 2)

	s.Equal(coldCalls, s.oracle.callCount(),
		"warm search must be served entirely from the distribution store")
}

// TestServiceDelivery runs the service end to end: request in, padded
// uppercase word list out.
func (s *PredictionSuite) TestServiceDelivery() {
	service, delivered := s.newService(5)

	service.Start(s.ctx)
	defer service.Stop()

	service.RequestPredictions("the cat ", -1)

	select {
	case words := <-delivered:
		s.Require().Len(words, 5, "delivery must be padded to the word count")
		s.Equal("SAT", words[0])
		s.Equal("RAN", words[1])
	case <-time.After(deliveryTimeout):
		s.Fail("timed out waiting for prediction delivery")
	}
}

// TestServiceFallbackOnFailure verifies the dictionary serves the whole
// list when the input cannot be tokenized.
func (s *PredictionSuite) TestServiceFallbackOnFailure() {
	service, delivered := s.newService(3)

	service.Start(s.ctx)
	defer service.Stop()

	service.RequestPredictions("zyzzyva", -1)

	select {
	case words := <-delivered:
		s.Equal([]string{"THE", "BE", "TO"}, words)
	case <-time.After(deliveryTimeout):
		s.Fail("timed out waiting for fallback delivery")
	}
}
