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
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/vmihailenco/msgpack/v5"
	"k8s.io/klog/v2"

	"github.com/scanwrite/prediction-engine/pkg/utils/logging"
)

const (
	// How long to wait before retrying to connect.
	retryInterval = 5 * time.Second
	// How often the poller should time out to check for context cancellation.
	pollTimeout = 250 * time.Millisecond
)

// Handler consumes decoded text-change events.
type Handler interface {
	HandleTextChanged(ctx context.Context, surfaceID string, event *TextChanged)
}

// SubscriberConfig holds the configuration for the Subscriber.
type SubscriberConfig struct {
	// Endpoint is the ZMQ endpoint surfaces connect their PUB sockets to.
	Endpoint string `json:"endpoint"`
	// TopicFilter limits which topics are received.
	TopicFilter string `json:"topicFilter"`
}

// DefaultSubscriberConfig returns a default Subscriber configuration.
func DefaultSubscriberConfig() *SubscriberConfig {
	return &SubscriberConfig{
		Endpoint:    "tcp://*:5557",
		TopicFilter: TextTopicPrefix,
	}
}

// Subscriber binds a ZMQ SUB socket, decodes text-change messages, and
// forwards them to a handler.
type Subscriber struct {
	handler     Handler
	endpoint    string
	topicFilter string
}

// NewSubscriber creates a new Subscriber forwarding to the handler.
func NewSubscriber(config *SubscriberConfig, handler Handler) *Subscriber {
	if config == nil {
		config = DefaultSubscriberConfig()
	}

	return &Subscriber{
		handler:     handler,
		endpoint:    config.Endpoint,
		topicFilter: config.TopicFilter,
	}
}

// Start receives messages until the provided context is canceled,
// reconnecting on socket errors.
func (s *Subscriber) Start(ctx context.Context) {
	logger := klog.FromContext(ctx).WithName("events-subscriber")

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down events-subscriber")
			return
		default:
			// The subscriber runs in a separate function to handle socket
			// setup/teardown and connection retries cleanly.
			s.runSubscriber(ctx)
			// wait before retrying, unless the context has been canceled.
			select {
			case <-time.After(retryInterval):
				logger.Info("retrying events-subscriber")
			case <-ctx.Done():
				logger.Info("shutting down events-subscriber")
				return
			}
		}
	}
}

// runSubscriber binds the SUB socket, subscribes to the topic filter, and
// listens for messages.
func (s *Subscriber) runSubscriber(ctx context.Context) {
	logger := klog.FromContext(ctx).WithName("events-subscriber")
	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		logger.Error(err, "Failed to create subscriber socket")
		return
	}
	defer sub.Close()

	if err := sub.Bind(s.endpoint); err != nil {
		logger.Error(err, "Failed to bind subscriber socket", "endpoint", s.endpoint)
		return
	}
	logger.Info("Bound subscriber socket", "endpoint", s.endpoint)

	if err := sub.SetSubscribe(s.topicFilter); err != nil {
		logger.Error(err, "Failed to subscribe to topic filter", "topic", s.topicFilter)
		return
	}

	poller := zmq.NewPoller()
	poller.Add(sub, zmq.POLLIN)
	debugLogger := logger.V(logging.DEBUG)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		polled, err := poller.Poll(pollTimeout)
		if err != nil {
			debugLogger.Error(err, "Failed to poll subscriber", "endpoint", s.endpoint)
			break // Exit on poll error to reconnect
		}

		if len(polled) == 0 {
			continue
		}

		parts, err := sub.RecvMessageBytes(0)
		if err != nil {
			debugLogger.Error(err, "Failed to receive message", "endpoint", s.endpoint)
			break // Exit on receive error to reconnect
		}
		if len(parts) != 3 {
			debugLogger.Info("Dropping malformed message", "endpoint", s.endpoint, "frames", len(parts))
			continue
		}

		topic := string(parts[0])
		seq := binary.BigEndian.Uint64(parts[1])
		payload := parts[2]

		surfaceID, err := SurfaceFromTopic(topic)
		if err != nil {
			debugLogger.Error(err, "Dropping message with unusable topic", "topic", topic)
			continue
		}

		var event TextChanged
		if err := msgpack.Unmarshal(payload, &event); err != nil {
			debugLogger.Error(err, "Failed to decode text-change payload", "topic", topic, "seq", seq)
			continue
		}

		debugLogger.Info("Received text change",
			"topic", topic, "seq", seq, "surface", surfaceID, "textLength", len(event.Text))

		s.handler.HandleTextChanged(ctx, surfaceID, &event)
	}
}
