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

// Package config loads the prediction server's TOML configuration and
// maps it onto the per-component config structs.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/scanwrite/prediction-engine/pkg/events"
	"github.com/scanwrite/prediction-engine/pkg/fallback"
	"github.com/scanwrite/prediction-engine/pkg/model"
	"github.com/scanwrite/prediction-engine/pkg/model/diststore"
	"github.com/scanwrite/prediction-engine/pkg/prediction"
	"github.com/scanwrite/prediction-engine/pkg/tokenization"
)

// Config is the full server configuration.
type Config struct {
	Engine    EngineSection    `toml:"engine"`
	Service   ServiceSection   `toml:"service"`
	Tokenizer TokenizerSection `toml:"tokenizer"`
	Oracle    OracleSection    `toml:"oracle"`
	DistStore DistStoreSection `toml:"diststore"`
	Events    EventsSection    `toml:"events"`
	Prefetch  PrefetchSection  `toml:"prefetch"`
	Fallback  FallbackSection  `toml:"fallback"`
	Metrics   MetricsSection   `toml:"metrics"`
}

// EngineSection configures the search engine.
type EngineSection struct {
	BeamWidth             int     `toml:"beam_width"`
	MaxWordLength         int     `toml:"max_word_length"`
	LengthPenaltyValue    float64 `toml:"length_penalty_value"`
	LengthPenaltyExponent float64 `toml:"length_penalty_exponent"`
	IterationFactor       int     `toml:"iteration_factor"`
}

// ServiceSection configures the prediction service.
type ServiceSection struct {
	WordCount int `toml:"word_count"`
}

// TokenizerSection configures the HuggingFace tokenizer.
type TokenizerSection struct {
	ModelName string `toml:"model_name"`
	CacheDir  string `toml:"cache_dir"`
	HFToken   string `toml:"hf_token"`
}

// OracleSection configures the ONNX oracle.
type OracleSection struct {
	ModelPath string `toml:"model_path"`
}

// DistStoreSection configures the distribution store backend.
type DistStoreSection struct {
	// Backend is one of "inmemory", "costaware" or "redis".
	Backend string `toml:"backend"`
	// Size is the entry bound of the in-memory backend.
	Size int `toml:"size"`
	// Memory is the byte budget of the cost-aware backend, e.g. "512MiB".
	Memory string `toml:"memory"`
	// Address is the Redis address of the redis backend.
	Address string `toml:"address"`
	// TTLSeconds bounds the lifetime of Redis entries; zero disables.
	TTLSeconds int `toml:"ttl_seconds"`
}

// EventsSection configures the ZMQ transport.
type EventsSection struct {
	SubscribeEndpoint string `toml:"subscribe_endpoint"`
	PublishEndpoint   string `toml:"publish_endpoint"`
	TopicFilter       string `toml:"topic_filter"`
}

// PrefetchSection configures the background prefetch pool.
type PrefetchSection struct {
	Workers int `toml:"workers"`
}

// FallbackSection configures the fallback dictionary.
type FallbackSection struct {
	WordsFile string `toml:"words_file"`
	MaxWords  int    `toml:"max_words"`
}

// MetricsSection configures Prometheus metrics.
type MetricsSection struct {
	Enable                 bool `toml:"enable"`
	LoggingIntervalSeconds int  `toml:"logging_interval_seconds"`
}

// Default returns the configuration used when no file is given. Values
// mirror the component defaults.
func Default() *Config {
	engineDefaults := prediction.DefaultConfig()
	serviceDefaults := prediction.DefaultServiceConfig()
	prefetchDefaults := prediction.DefaultPrefetchConfig()
	subscriberDefaults := events.DefaultSubscriberConfig()
	publisherDefaults := events.DefaultPublisherConfig()

	return &Config{
		Engine: EngineSection{
			BeamWidth:             engineDefaults.BeamWidth,
			MaxWordLength:         engineDefaults.MaxWordLength,
			LengthPenaltyValue:    engineDefaults.LengthPenaltyValue,
			LengthPenaltyExponent: engineDefaults.LengthPenaltyExponent,
			IterationFactor:       engineDefaults.IterationFactor,
		},
		Service: ServiceSection{
			WordCount: serviceDefaults.WordCount,
		},
		DistStore: DistStoreSection{
			Backend: "inmemory",
		},
		Events: EventsSection{
			SubscribeEndpoint: subscriberDefaults.Endpoint,
			PublishEndpoint:   publisherDefaults.Endpoint,
			TopicFilter:       subscriberDefaults.TopicFilter,
		},
		Prefetch: PrefetchSection{
			Workers: prefetchDefaults.WorkersCount,
		},
	}
}

// Load reads the TOML file at path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", path, err)
	}

	return cfg, nil
}

// EngineConfig maps the engine section onto a prediction.Config.
func (c *Config) EngineConfig() *prediction.Config {
	return &prediction.Config{
		BeamWidth:             c.Engine.BeamWidth,
		MaxWordLength:         c.Engine.MaxWordLength,
		LengthPenaltyValue:    c.Engine.LengthPenaltyValue,
		LengthPenaltyExponent: c.Engine.LengthPenaltyExponent,
		IterationFactor:       c.Engine.IterationFactor,
		EnableMetrics:         c.Metrics.Enable,
	}
}

// ServiceConfig maps the service section onto a prediction.ServiceConfig.
func (c *Config) ServiceConfig() *prediction.ServiceConfig {
	return &prediction.ServiceConfig{
		WordCount: c.Service.WordCount,
	}
}

// TokenizerConfig maps the tokenizer section onto an HFTokenizerConfig.
func (c *Config) TokenizerConfig() *tokenization.HFTokenizerConfig {
	cfg := tokenization.DefaultHFTokenizerConfig()
	if c.Tokenizer.CacheDir != "" {
		cfg.TokenizersCacheDir = c.Tokenizer.CacheDir
	}
	cfg.HuggingFaceToken = c.Tokenizer.HFToken

	return cfg
}

// OracleConfig maps the oracle section onto an ONNXOracleConfig.
func (c *Config) OracleConfig() *model.ONNXOracleConfig {
	return &model.ONNXOracleConfig{
		ModelPath: c.Oracle.ModelPath,
	}
}

// DistStoreConfig maps the diststore section onto a diststore.Config.
func (c *Config) DistStoreConfig() (*diststore.Config, error) {
	cfg := &diststore.Config{
		EnableMetrics:          c.Metrics.Enable,
		MetricsLoggingInterval: time.Duration(c.Metrics.LoggingIntervalSeconds) * time.Second,
	}

	switch c.DistStore.Backend {
	case "", "inmemory":
		inMemory := diststore.DefaultInMemoryStoreConfig()
		if c.DistStore.Size > 0 {
			inMemory.Size = c.DistStore.Size
		}
		cfg.InMemoryConfig = inMemory
	case "costaware":
		costAware := diststore.DefaultCostAwareMemoryStoreConfig()
		if c.DistStore.Memory != "" {
			costAware.Size = c.DistStore.Memory
		}
		cfg.CostAwareMemoryConfig = costAware
	case "redis":
		redis := diststore.DefaultRedisStoreConfig()
		if c.DistStore.Address != "" {
			redis.Address = c.DistStore.Address
		}
		redis.TTL = time.Duration(c.DistStore.TTLSeconds) * time.Second
		cfg.RedisConfig = redis
	default:
		return nil, fmt.Errorf("unsupported diststore backend %q", c.DistStore.Backend)
	}

	return cfg, nil
}

// SubscriberConfig maps the events section onto a SubscriberConfig.
func (c *Config) SubscriberConfig() *events.SubscriberConfig {
	return &events.SubscriberConfig{
		Endpoint:    c.Events.SubscribeEndpoint,
		TopicFilter: c.Events.TopicFilter,
	}
}

// PublisherConfig maps the events section onto a PublisherConfig.
func (c *Config) PublisherConfig() *events.PublisherConfig {
	return &events.PublisherConfig{
		Endpoint: c.Events.PublishEndpoint,
	}
}

// PrefetchConfig maps the prefetch section onto a PrefetchConfig.
func (c *Config) PrefetchConfig() *prediction.PrefetchConfig {
	return &prediction.PrefetchConfig{
		WorkersCount: c.Prefetch.Workers,
	}
}

// FallbackConfig maps the fallback section onto a fallback.Config, or nil
// when no word list is configured.
func (c *Config) FallbackConfig() *fallback.Config {
	if c.Fallback.WordsFile == "" {
		return nil
	}

	cfg := fallback.DefaultConfig()
	cfg.WordsFile = c.Fallback.WordsFile
	if c.Fallback.MaxWords > 0 {
		cfg.MaxWords = c.Fallback.MaxWords
	}

	return cfg
}
