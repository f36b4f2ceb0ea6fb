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

// Package training ingests training lines asynchronously: a ZMQ subscriber
// receives msgpack-encoded line batches and a sharded worker pool feeds them
// into a chain's index.
package training

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog/v2"

	"github.com/markov-d/markov-chain-manager/pkg/markov"
	"github.com/markov-d/markov-chain-manager/pkg/utils/logging"
)

// Config holds the configuration for the training pool.
type Config struct {
	// ZMQEndpoint is the ZMQ address to bind (e.g., "tcp://*:5557").
	ZMQEndpoint string `json:"zmqEndpoint"`
	// TopicFilter is the ZMQ subscription filter (e.g., "train@").
	TopicFilter string `json:"topicFilter"`
	// Concurrency is the number of parallel workers to run.
	Concurrency int `json:"concurrency"`
}

// DefaultConfig returns a default configuration for the training pool.
func DefaultConfig() *Config {
	return &Config{
		ZMQEndpoint: "tcp://*:5557",
		TopicFilter: TopicPrefix + "@",
		Concurrency: 4,
	}
}

// Message represents a message that is read from a ZMQ topic.
type Message struct {
	Topic   string
	Payload []byte
	// Sequence number of the message
	Seq uint64
	// Namespace identifies the model the lines belong to.
	// This will be extracted from the ZMQ topic.
	Namespace string
}

// Pool is a sharded worker pool that indexes training lines received from a
// ZMQ subscriber. Messages for the same namespace land on the same shard and
// are processed in order.
type Pool struct {
	queues      []workqueue.TypedRateLimitingInterface[*Message]
	concurrency int
	subscriber  *zmqSubscriber
	chain       *markov.Chain
	wg          sync.WaitGroup
}

// NewPool creates a Pool with a sharded worker setup.
func NewPool(cfg *Config, chain *markov.Chain) *Pool {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := &Pool{
		queues:      make([]workqueue.TypedRateLimitingInterface[*Message], cfg.Concurrency),
		concurrency: cfg.Concurrency,
		chain:       chain,
	}

	for i := 0; i < p.concurrency; i++ {
		p.queues[i] = workqueue.NewTypedRateLimitingQueue(workqueue.DefaultTypedControllerRateLimiter[*Message]())
	}

	p.subscriber = newZMQSubscriber(p, cfg.ZMQEndpoint, cfg.TopicFilter)
	return p
}

// Start begins the worker pool and the ZMQ subscriber.
// It is non-blocking.
func (p *Pool) Start(ctx context.Context) {
	logger := klog.FromContext(ctx)
	logger.Info("Starting sharded training pool", "workers", p.concurrency)

	p.wg.Add(p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		// Each worker is given its own dedicated queue shard.
		go p.worker(ctx, i)
	}

	go p.subscriber.Start(ctx)
}

// Shutdown gracefully stops the pool and its subscriber.
func (p *Pool) Shutdown(ctx context.Context) {
	logger := klog.FromContext(ctx)
	logger.Info("Shutting down training pool...")

	for _, queue := range p.queues {
		queue.ShutDown()
	}

	p.wg.Wait()
	logger.Info("training pool shut down.")
}

// AddTask is called by the subscriber to add a message to the processing
// queue. It hashes the namespace to select a queue, ensuring messages for the
// same namespace always go to the same worker (ordered queue).
func (p *Pool) AddTask(task *Message) {
	// Use an FNV-1a hash to deterministically select a queue.
	h := fnv.New32a()
	_, err := h.Write([]byte(task.Namespace))
	if err != nil {
		return
	}

	//nolint:gosec // if concurrency overflows then the world is in trouble anyway
	queueIndex := h.Sum32() % uint32(p.concurrency)
	p.queues[queueIndex].Add(task)
}

// worker is the main processing loop for a single worker goroutine.
// It processes messages from its dedicated queue using the workqueue pattern.
func (p *Pool) worker(ctx context.Context, workerIndex int) {
	defer p.wg.Done()
	queue := p.queues[workerIndex]
	for {
		task, shutdown := queue.Get()
		if shutdown {
			return
		}

		// Use a nested func to ensure Done is always called.
		func(task *Message) {
			defer queue.Done(task)
			p.processMessage(ctx, task)
			// Task succeeded, remove it from the queue.
			queue.Forget(task)
		}(task)

		// Check if context was cancelled after processing a task.
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// processMessage deserializes the line batch and indexes every line. Lines
// that fail to index are logged and skipped; a payload that cannot be
// unmarshalled is dropped rather than retried.
func (p *Pool) processMessage(ctx context.Context, msg *Message) {
	debugLogger := klog.FromContext(ctx).V(logging.DEBUG)
	debugLogger.Info("Processing training message", "topic", msg.Topic, "seq", msg.Seq)

	if msg.Namespace != p.chain.Namespace() {
		debugLogger.Info("Dropping message for foreign namespace",
			"namespace", msg.Namespace, "chainNamespace", p.chain.Namespace())
		return
	}

	var batch LineBatch
	if err := msgpack.Unmarshal(msg.Payload, &batch); err != nil {
		// This is likely a "poison pill" message that can't be unmarshalled.
		// We log the error but do not retry it.
		debugLogger.Error(err, "Failed to unmarshal line batch, dropping message")
		return
	}

	for _, line := range batch.Lines {
		if err := p.chain.AddLine(ctx, line); err != nil {
			debugLogger.Error(err, "Failed to index training line",
				"namespace", msg.Namespace, "lineLength", len(line))
			continue // Continue processing other lines even if one fails
		}
	}
}
