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

package events

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	zmq "github.com/pebbe/zmq4"
	"github.com/vmihailenco/msgpack/v5"
	"k8s.io/klog/v2"

	"github.com/scanwrite/prediction-engine/pkg/utils/logging"
)

// PublisherConfig holds the configuration for the Publisher.
type PublisherConfig struct {
	// Endpoint is the ZMQ endpoint the PUB socket binds to.
	Endpoint string `json:"endpoint"`
}

// DefaultPublisherConfig returns a default Publisher configuration.
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		Endpoint: "tcp://*:5558",
	}
}

// Publisher sends prediction lists back to surfaces over a ZMQ PUB socket.
// Safe for concurrent use.
type Publisher struct {
	mu     sync.Mutex
	socket *zmq.Socket
	seq    uint64
}

// NewPublisher creates a Publisher bound to the configured endpoint.
func NewPublisher(config *PublisherConfig) (*Publisher, error) {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	socket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher socket: %w", err)
	}

	if err := socket.Bind(config.Endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to bind publisher socket to %s: %w", config.Endpoint, err)
	}

	return &Publisher{socket: socket}, nil
}

// PublishPredictions sends a word list to the surface's predictions topic.
func (p *Publisher) PublishPredictions(ctx context.Context, surfaceID string, words []string) error {
	payload, err := msgpack.Marshal(&Predictions{Words: words})
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}

	topic := PredictionsTopic(surfaceID)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], p.seq)

	if _, err := p.socket.SendMessage(topic, seqBytes[:], payload); err != nil {
		return fmt.Errorf("failed to publish predictions: %w", err)
	}

	klog.FromContext(ctx).V(logging.TRACE).WithName("events-publisher").
		Info("published predictions", "topic", topic, "seq", p.seq, "words", len(words))

	return nil
}

// Close releases the PUB socket.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.socket != nil {
		err := p.socket.Close()
		p.socket = nil
		if err != nil {
			return fmt.Errorf("failed to close publisher socket: %w", err)
		}
	}

	return nil
}
