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

package chainstore

import (
	"context"
	"fmt"
	"time"

	"github.com/markov-d/markov-chain-manager/pkg/chainstore/metrics"
)

// Config holds the configuration for the chain store.
// It may configure several backends such as listed within the struct.
// If multiple backends are configured, only the first one will be used.
type Config struct {
	// InMemoryConfig holds the configuration for the in-memory store.
	InMemoryConfig *InMemoryStoreConfig `json:"inMemoryConfig"`
	// RedisConfig holds the configuration for the Redis store.
	RedisConfig *RedisStoreConfig `json:"redisConfig"`

	// EnableMetrics toggles whether increments/reads/deletes are recorded.
	EnableMetrics bool `json:"enableMetrics"`
	// MetricsLoggingInterval defines the interval at which metrics are logged.
	// If zero, metrics logging is disabled.
	// Requires `EnableMetrics` to be true.
	MetricsLoggingInterval time.Duration `json:"metricsLoggingInterval"`
}

// DefaultConfig returns a default configuration for the chain store.
func DefaultConfig() *Config {
	return &Config{
		InMemoryConfig: DefaultInMemoryStoreConfig(),
		EnableMetrics:  false,
	}
}

// NewStore creates a Store instance backed by the first configured backend.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var store Store
	var err error

	switch {
	case cfg.InMemoryConfig != nil:
		store, err = NewInMemoryStore(cfg.InMemoryConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
	case cfg.RedisConfig != nil:
		store, err = NewRedisStore(cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	default:
		return nil, fmt.Errorf("no valid store configuration provided")
	}

	// wrap in metrics only if enabled
	if cfg.EnableMetrics {
		store = NewInstrumentedStore(store)
		metrics.Register()
		if cfg.MetricsLoggingInterval > 0 {
			// this is non-blocking
			metrics.StartMetricsLogging(ctx, cfg.MetricsLoggingInterval)
		}
	}

	return store, nil
}

// Member is a multiset member together with its score.
type Member struct {
	Member string
	Score  float64
}

// Store defines the interface for an ordered key-value multiset backend.
//
// A store maps keys to weighted member sets: each member carries a numeric
// score that is incremented atomically on writes and drives rank-ordered
// retrieval on reads. Chain models persist their (key, completion) frequency
// associations through this interface.
//
// Store operations are thread-safe and can be performed concurrently.
// Implementations must not retry on their own; transport failures propagate
// to the caller unmodified.
type Store interface {
	// IncrScore atomically increments the score of member under key by delta,
	// creating the key and the member as needed. It returns the new score.
	IncrScore(ctx context.Context, key, member string, delta float64) (float64, error)
	// TopMembers returns up to n members of key ordered by descending score.
	TopMembers(ctx context.Context, key string, n int64) ([]Member, error)
	// BottomMembers returns up to n members of key ordered by ascending score.
	BottomMembers(ctx context.Context, key string, n int64) ([]Member, error)
	// GetScore returns the score of member under key. The boolean reports
	// whether the member exists.
	GetScore(ctx context.Context, key, member string) (float64, bool, error)
	// ListMembers returns all members of key ordered by descending score.
	ListMembers(ctx context.Context, key string) ([]string, error)
	// RandomKey returns a uniformly random key from the store. The boolean
	// reports whether the store holds any keys at all.
	RandomKey(ctx context.Context) (string, bool, error)
	// KeysMatching returns all keys matching a glob-style pattern.
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	// Delete removes the given keys and their member sets.
	Delete(ctx context.Context, keys ...string) error
}
