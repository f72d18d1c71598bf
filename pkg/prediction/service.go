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
	"fmt"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/scanwrite/prediction-engine/pkg/fallback"
	"github.com/scanwrite/prediction-engine/pkg/metrics"
	"github.com/scanwrite/prediction-engine/pkg/utils"
	"github.com/scanwrite/prediction-engine/pkg/utils/logging"
)

// defaultWordCount is how many words the service delivers per request.
const defaultWordCount = 10

// ServiceConfig holds the configuration for the Service.
type ServiceConfig struct {
	// WordCount is the exact number of words delivered per request when a
	// fallback dictionary is available for padding.
	WordCount int `json:"wordCount"`
}

// DefaultServiceConfig returns a default Service configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		WordCount: defaultWordCount,
	}
}

// Callback delivers a finished prediction list. It is invoked on the
// service worker goroutine.
type Callback func(words []string)

type request struct {
	text   string
	cursor int
}

// Service drives the Engine for an interactive text-entry surface. While
// a search is running, newer requests supersede any request still waiting;
// only the most recent input is ever searched. Delivered word lists are
// uppercased for scanning surfaces and padded from the fallback dictionary
// so the surface layout stays stable even when the engine fails.
type Service struct {
	config     *ServiceConfig
	engine     *Engine
	dictionary *fallback.Dictionary
	callback   Callback

	// requests has capacity one: the slot holds the latest pending request.
	requests chan request

	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewService creates a Service. The dictionary may be nil, disabling
// padding.
func NewService(config *ServiceConfig, engine *Engine, dictionary *fallback.Dictionary,
	callback Callback,
) (*Service, error) {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if engine == nil {
		return nil, fmt.Errorf("no engine provided")
	}
	if callback == nil {
		return nil, fmt.Errorf("no callback provided")
	}
	if config.WordCount <= 0 {
		return nil, fmt.Errorf("word count must be positive")
	}

	return &Service{
		config:     config,
		engine:     engine,
		dictionary: dictionary,
		callback:   callback,
		requests:   make(chan request, 1),
		stopCh:     make(chan struct{}),
	}, nil
}

// RequestPredictions submits the current input. A negative cursor means
// end of text; otherwise only the text before the cursor is considered.
// Never blocks: a pending request not yet picked up is replaced.
func (s *Service) RequestPredictions(text string, cursor int) {
	metrics.ServiceRequests.Inc()

	req := request{text: text, cursor: cursor}
	for {
		select {
		case s.requests <- req:
			return
		default:
		}

		select {
		case <-s.requests:
			metrics.ServiceCoalesced.Inc()
		default:
		}
	}
}

// Start launches the worker goroutine. Subsequent calls are no-ops.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.workerLoop(ctx)
	})
}

// Stop shuts the worker down and waits for it to exit.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Service) workerLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case req := <-s.requests:
			s.handle(ctx, req)
		}
	}
}

// handle runs one search and delivers the word list. A panic or engine
// error is contained here so the worker loop outlives any single request.
func (s *Service) handle(ctx context.Context, req request) {
	debugLogger := klog.FromContext(ctx).V(logging.DEBUG).WithName("prediction.Service")
	defer func() {
		if r := recover(); r != nil {
			klog.FromContext(ctx).Error(fmt.Errorf("%v", r), "recovered panic in prediction worker")
		}
	}()

	text := truncateAtCursor(req.text, req.cursor)

	predictions, err := s.engine.TopKWords(ctx, text, s.config.WordCount)
	if err != nil {
		debugLogger.Error(err, "search failed, padding from dictionary", "text", text)
		predictions = nil
	}

	seen := sets.New[string]()
	words := make([]string, 0, s.config.WordCount)
	for _, p := range predictions {
		if seen.Has(p.Text) {
			continue
		}
		seen.Insert(p.Text)
		words = append(words, p.Text)
	}

	if len(words) < s.config.WordCount && s.dictionary != nil {
		_, unfinished := Normalize(text)
		words = append(words, s.dictionary.Pad(unfinished, s.config.WordCount-len(words), seen)...)
	}
	if len(words) > s.config.WordCount {
		words = words[:s.config.WordCount]
	}

	s.callback(utils.SliceMap(words, strings.ToUpper))
}

// truncateAtCursor keeps the text before the cursor, counted in runes.
// Cursors out of range mean end of text.
func truncateAtCursor(text string, cursor int) string {
	if cursor < 0 {
		return text
	}

	runes := []rune(text)
	if cursor >= len(runes) {
		return text
	}

	return string(runes[:cursor])
}
