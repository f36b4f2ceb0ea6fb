// Copyright 2025 The markov-d Authors.
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

package training

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	zmq "github.com/pebbe/zmq4"
	"k8s.io/klog/v2"

	"github.com/markov-d/markov-chain-manager/pkg/utils/logging"
)

const (
	// How long to wait before retrying to connect.
	retryInterval = 5 * time.Second
	// How often the poller should time out to check for context cancellation.
	pollTimeout = 250 * time.Millisecond
)

// zmqSubscriber connects to a ZMQ publisher and forwards messages to a pool.
type zmqSubscriber struct {
	pool        *Pool
	endpoint    string
	topicFilter string
}

// newZMQSubscriber creates a new ZMQ subscriber.
func newZMQSubscriber(pool *Pool, endpoint, topicFilter string) *zmqSubscriber {
	return &zmqSubscriber{
		pool:        pool,
		endpoint:    endpoint,
		topicFilter: topicFilter,
	}
}

// Start connects to a ZMQ PUB socket as a SUB, receives messages,
// wraps them in Message structs, and pushes them into the pool.
// This loop will run until the provided context is canceled.
func (z *zmqSubscriber) Start(ctx context.Context) {
	logger := klog.FromContext(ctx).WithName("zmq-subscriber")

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down zmq-subscriber")
			return
		default:
			// We run the subscriber in a separate function to handle socket
			// setup/teardown and connection retries cleanly.
			z.runSubscriber(ctx)
			// wait before retrying, unless the context has been canceled.
			select {
			case <-time.After(retryInterval):
				logger.Info("retrying zmq-subscriber")
			case <-ctx.Done():
				logger.Info("shutting down zmq-subscriber")
				return
			}
		}
	}
}

// runSubscriber connects to the ZMQ PUB socket, subscribes to the topic
// filter, and listens for messages.
func (z *zmqSubscriber) runSubscriber(ctx context.Context) {
	logger := klog.FromContext(ctx).WithName("zmq-subscriber")
	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		logger.Error(err, "Failed to create subscriber socket")
		return
	}
	defer sub.Close()

	if err := sub.Bind(z.endpoint); err != nil {
		logger.Error(err, "Failed to bind subscriber socket", "endpoint", z.endpoint)
		return
	}
	logger.Info("Bound subscriber socket", "endpoint", z.endpoint)

	if err := sub.SetSubscribe(z.topicFilter); err != nil {
		logger.Error(err, "Failed to subscribe to topic filter", "topic", z.topicFilter)
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
			debugLogger.Error(err, "Failed to poll zmq subscriber", "endpoint", z.endpoint)
			break // Exit on poll error to reconnect
		}

		if len(polled) > 0 {
			parts, err := sub.RecvMessageBytes(0)
			if err != nil {
				debugLogger.Error(err, "Failed to receive message from zmq subscriber", "endpoint", z.endpoint)
				break // Exit on receive error to reconnect
			}
			if len(parts) != 3 {
				debugLogger.Error(nil, "Malformed message from zmq subscriber",
					"endpoint", z.endpoint, "parts", len(parts))
				continue
			}
			topic := string(parts[0])
			seqBytes := parts[1]
			payload := parts[2]

			seq := binary.BigEndian.Uint64(seqBytes)

			// Extract the namespace from the topic, assuming the
			// "train@<namespace>" format.
			topicParts := strings.Split(topic, "@")
			if len(topicParts) != 2 || topicParts[0] != TopicPrefix {
				debugLogger.Error(nil, "Failed to extract namespace from topic, expected format train@<namespace>",
					"topic", topic)
				continue // Useless if we can't extract the namespace
			}
			namespace := topicParts[1]

			debugLogger.Info("Received message from zmq subscriber",
				"topic", topic,
				"seq", seq,
				"namespace", namespace,
				"payloadSize", len(payload))

			z.pool.AddTask(&Message{
				Topic:     topic,
				Payload:   payload,
				Seq:       seq,
				Namespace: namespace,
			})
		}
	}
}
