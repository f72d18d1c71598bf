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

// The prediction server subscribes to text changes from scanning surfaces
// over ZMQ, runs the word-prediction engine, and publishes the resulting
// word lists back.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/scanwrite/prediction-engine/pkg/config"
	"github.com/scanwrite/prediction-engine/pkg/events"
	"github.com/scanwrite/prediction-engine/pkg/fallback"
	"github.com/scanwrite/prediction-engine/pkg/model"
	"github.com/scanwrite/prediction-engine/pkg/model/diststore"
	"github.com/scanwrite/prediction-engine/pkg/prediction"
	"github.com/scanwrite/prediction-engine/pkg/tokenization"
)

func main() {
	klog.InitFlags(nil)
	configPath := flag.String("config", "", "path to the TOML configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := klog.FromContext(ctx)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		logger.Error(err, "Failed to run prediction server")
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	logger := klog.FromContext(ctx)

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Info("Loaded configuration", "path", configPath)
	}

	oracle, err := setupOracle(ctx, cfg)
	if err != nil {
		return err
	}

	tokenizer, err := setupTokenizer(cfg)
	if err != nil {
		return err
	}

	engine, err := prediction.NewEngine(cfg.EngineConfig(), tokenizer, oracle)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	dictionary, err := setupDictionary(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := events.NewPublisher(cfg.PublisherConfig())
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	handler := &textEventHandler{publisher: publisher}

	service, err := prediction.NewService(cfg.ServiceConfig(), engine, dictionary,
		handler.deliver(ctx))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	handler.service = service

	service.Start(ctx)
	defer service.Stop()

	prefetchPool, err := prediction.NewPrefetchPool(cfg.PrefetchConfig(), tokenizer, oracle)
	if err != nil {
		return fmt.Errorf("failed to create prefetch pool: %w", err)
	}
	handler.prefetch = prefetchPool

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		prefetchPool.Run(ctx)
	}()

	subscriber := events.NewSubscriber(cfg.SubscriberConfig(), handler)
	logger.Info("=== Prediction Server Started ===",
		"subscribe", cfg.Events.SubscribeEndpoint, "publish", cfg.Events.PublishEndpoint)

	subscriber.Start(ctx) // blocks until ctx is done
	wg.Wait()

	logger.Info("Prediction server shut down")
	return nil
}

func setupOracle(ctx context.Context, cfg *config.Config) (model.Oracle, error) {
	onnxOracle, err := model.NewONNXOracle(cfg.OracleConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX oracle: %w", err)
	}

	storeCfg, err := cfg.DistStoreConfig()
	if err != nil {
		return nil, err
	}

	store, err := diststore.NewStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create distribution store: %w", err)
	}

	return model.NewCachedOracle(onnxOracle, store), nil
}

func setupTokenizer(cfg *config.Config) (tokenization.Tokenizer, error) {
	if cfg.Tokenizer.ModelName == "" {
		return nil, fmt.Errorf("no tokenizer model name configured")
	}

	loader, err := tokenization.NewCachedHFTokenizer(cfg.TokenizerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer loader: %w", err)
	}

	tokenizer, err := loader.ForModel(cfg.Tokenizer.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to bind tokenizer to model %q: %w",
			cfg.Tokenizer.ModelName, err)
	}

	return tokenizer, nil
}

func setupDictionary(ctx context.Context, cfg *config.Config) (*fallback.Dictionary, error) {
	fallbackCfg := cfg.FallbackConfig()
	if fallbackCfg == nil {
		klog.FromContext(ctx).Info("No fallback dictionary configured, padding disabled")
		return nil, nil
	}

	dictionary, err := fallback.LoadDictionary(fallbackCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback dictionary: %w", err)
	}

	klog.FromContext(ctx).Info("Loaded fallback dictionary", "words", dictionary.Len())
	return dictionary, nil
}

// textEventHandler glues the transport to the service: text changes feed
// the service and the prefetch pool, and finished word lists are published
// back to the surface that asked last.
type textEventHandler struct {
	service   *prediction.Service
	prefetch  *prediction.PrefetchPool
	publisher *events.Publisher

	mu          sync.Mutex
	lastSurface string
}

var _ events.Handler = &textEventHandler{}

func (h *textEventHandler) HandleTextChanged(_ context.Context, surfaceID string, event *events.TextChanged) {
	h.mu.Lock()
	h.lastSurface = surfaceID
	h.mu.Unlock()

	h.prefetch.AddContext(event.Text)
	h.service.RequestPredictions(event.Text, event.CursorPosition)
}

func (h *textEventHandler) deliver(ctx context.Context) prediction.Callback {
	return func(words []string) {
		h.mu.Lock()
		surfaceID := h.lastSurface
		h.mu.Unlock()

		if surfaceID == "" {
			return
		}

		if err := h.publisher.PublishPredictions(ctx, surfaceID, words); err != nil {
			klog.FromContext(ctx).Error(err, "failed to publish predictions", "surface", surfaceID)
		}
	}
}
