/*
Copyright 2025 The markov-d Authors.

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

// Package markov builds and queries n-gram language models over token
// sequences, backed by an ordered-multiset store. It covers incremental index
// construction from training lines, frequency-normalized scoring of phrases
// against the model, and stochastic text generation with quality filtering
// and topic relevance biasing.
package markov

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/markov-d/markov-chain-manager/pkg/chainstore"
)

const (
	// defaultNamespace isolates keys of chains that did not pick a namespace.
	defaultNamespace = "markov"

	defaultKeyLength        = 2
	defaultCompletionLength = 1

	// defaultCorpusConcurrency bounds parallel line indexing in AddCorpus.
	defaultCorpusConcurrency = 8
)

// Config holds the configuration for a Chain.
type Config struct {
	// StoreConfig configures the backing ordered-multiset store.
	StoreConfig *chainstore.Config `json:"storeConfig"`
	// ScoreCacheConfig configures the scorer's max-frequency cache.
	// A nil value disables the cache.
	ScoreCacheConfig *ScoreCacheConfig `json:"scoreCacheConfig"`

	// Namespace prefixes every key this chain reads or writes, isolating the
	// model from others sharing the store.
	Namespace string `json:"namespace"`
	// KeyLength is the token width of lookup keys.
	KeyLength int `json:"keyLength"`
	// CompletionLength is the token width of completions.
	CompletionLength int `json:"completionLength"`
}

// NewDefaultConfig returns a default configuration for a Chain.
func NewDefaultConfig() *Config {
	return &Config{
		StoreConfig:      chainstore.DefaultConfig(),
		ScoreCacheConfig: DefaultScoreCacheConfig(),
		Namespace:        defaultNamespace,
		KeyLength:        defaultKeyLength,
		CompletionLength: defaultCompletionLength,
	}
}

// Chain is a handle over one namespaced n-gram model. It is stateless
// computation over the store: the handle holds configuration only, and every
// method is safe for concurrent use.
type Chain struct {
	store      chainstore.Store
	scoreCache *scoreCache

	namespace        string
	keyLength        int
	completionLength int
}

// NewChain creates a Chain given a Config.
func NewChain(ctx context.Context, config *Config) (*Chain, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	if config.KeyLength < 1 {
		return nil, fmt.Errorf("%w: key length must be positive, got %d", ErrInvalidInput, config.KeyLength)
	}
	if config.CompletionLength < 1 {
		return nil, fmt.Errorf("%w: completion length must be positive, got %d",
			ErrInvalidInput, config.CompletionLength)
	}

	store, err := chainstore.NewStore(ctx, config.StoreConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain store: %w", err)
	}

	return NewChainWithStore(config, store)
}

// NewChainWithStore creates a Chain over an existing store. The store
// configuration inside config is ignored.
func NewChainWithStore(config *Config, store chainstore.Store) (*Chain, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	var cache *scoreCache
	if config.ScoreCacheConfig != nil {
		var err error
		cache, err = newScoreCache(config.ScoreCacheConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create score cache: %w", err)
		}
	}

	return &Chain{
		store:            store,
		scoreCache:       cache,
		namespace:        config.Namespace,
		keyLength:        config.KeyLength,
		completionLength: config.CompletionLength,
	}, nil
}

// Store returns the backing store used by the Chain.
func (c *Chain) Store() chainstore.Store {
	return c.store
}

// Namespace returns the namespace qualifying every key of this chain.
func (c *Chain) Namespace() string {
	return c.namespace
}

// AddCorpus indexes a batch of training lines with bounded concurrency.
// The first failing line cancels the remaining work.
func (c *Chain) AddCorpus(ctx context.Context, lines [][]string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultCorpusConcurrency)

	for _, line := range lines {
		g.Go(func() error {
			return c.AddLine(gctx, line)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to index corpus: %w", err)
	}

	return nil
}

// DeleteModel removes every key in the chain's namespace from the store.
// This is bulk housekeeping, not part of indexing, scoring, or generation.
func (c *Chain) DeleteModel(ctx context.Context) error {
	keys, err := c.store.KeysMatching(ctx, c.keyPattern("*"))
	if err != nil {
		return fmt.Errorf("failed to enumerate namespace keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete namespace keys: %w", err)
	}

	if c.scoreCache != nil {
		c.scoreCache.clear()
	}

	klog.FromContext(ctx).WithName("markov.Chain").Info("deleted model",
		"namespace", c.namespace, "keys", len(keys))

	return nil
}

// keyPattern builds a namespace-qualified glob pattern.
func (c *Chain) keyPattern(suffix string) string {
	if c.namespace == "" {
		return suffix
	}

	return c.namespace + Separator + suffix
}
