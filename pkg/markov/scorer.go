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

package markov

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
)

// normalizeTo is the upper bound of normalized completion scores.
const normalizeTo = 100

const (
	defaultScoreCacheCounters = 1e6
	defaultScoreCacheSize     = "64MiB"
	defaultScoreCacheTTL      = time.Minute
	// scoreCacheEntryCost approximates the byte cost of one cached maximum.
	scoreCacheEntryCost = 16
	// default buffer size for ristretto
	defaultBufferItems = 64
)

// ScoreCacheConfig holds the configuration for the scorer's max-frequency
// cache.
type ScoreCacheConfig struct {
	// Size is the maximum memory budget of the cache.
	// Supports human-readable formats like "64MiB", "1GB", etc.
	Size string `json:"size,omitempty"`
	// NumCounters is the number of keys ristretto tracks for admission.
	NumCounters int64 `json:"numCounters,omitempty"`
	// TTL bounds staleness of cached maxima under concurrent writers that
	// bypass this process.
	TTL time.Duration `json:"ttl,omitempty"`
}

// DefaultScoreCacheConfig returns a default configuration for the score
// cache.
func DefaultScoreCacheConfig() *ScoreCacheConfig {
	return &ScoreCacheConfig{
		Size:        defaultScoreCacheSize,
		NumCounters: defaultScoreCacheCounters,
		TTL:         defaultScoreCacheTTL,
	}
}

// scoreCache caches per-key maximum completion frequencies so that scoring a
// line does not pay one ranked-range store call per window. Entries are keyed
// by the xxhash of the encoded chain key and invalidated by the index builder
// whenever the key takes an increment.
type scoreCache struct {
	cache *ristretto.Cache[uint64, float64]
	ttl   time.Duration
}

func newScoreCache(cfg *ScoreCacheConfig) (*scoreCache, error) {
	if cfg == nil {
		cfg = DefaultScoreCacheConfig()
	}

	sizeBytes, err := humanize.ParseBytes(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score cache size: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, float64]{
		NumCounters: cfg.NumCounters,
		MaxCost:     int64(sizeBytes), // #nosec G115
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize score cache: %w", err)
	}

	return &scoreCache{
		cache: cache,
		ttl:   cfg.TTL,
	}, nil
}

func (s *scoreCache) get(key Key) (float64, bool) {
	return s.cache.Get(xxhash.Sum64String(key.String()))
}

func (s *scoreCache) set(key Key, maximum float64) {
	s.cache.SetWithTTL(xxhash.Sum64String(key.String()), maximum, scoreCacheEntryCost, s.ttl)
}

func (s *scoreCache) invalidate(key Key) {
	s.cache.Del(xxhash.Sum64String(key.String()))
	s.cache.Wait()
}

func (s *scoreCache) clear() {
	s.cache.Clear()
}

// MaxForKey returns the frequency of the most common completion under key,
// or 0 when the key has no completions.
func (c *Chain) MaxForKey(ctx context.Context, key Key) (float64, error) {
	if c.scoreCache != nil {
		if maximum, found := c.scoreCache.get(key); found {
			return maximum, nil
		}
	}

	top, err := c.store.TopMembers(ctx, key.String(), 1)
	if err != nil {
		return 0, fmt.Errorf("failed to get maximum for key: %w", err)
	}

	var maximum float64
	if len(top) > 0 {
		maximum = top[0].Score
	}

	if c.scoreCache != nil {
		c.scoreCache.set(key, maximum)
	}

	return maximum, nil
}

// MinForKey returns the frequency of the least common completion under key,
// or 0 when the key has no completions.
func (c *Chain) MinForKey(ctx context.Context, key Key) (float64, error) {
	bottom, err := c.store.BottomMembers(ctx, key.String(), 1)
	if err != nil {
		return 0, fmt.Errorf("failed to get minimum for key: %w", err)
	}

	if len(bottom) == 0 {
		return 0, nil
	}

	return bottom[0].Score, nil
}

// ScoreCompletion returns the normalized score of a completion under a key:
// the completion's raw frequency over the key's maximum frequency, scaled to
// [0, normalizeTo]. An absent key or completion scores 0; a zero maximum is
// treated as 1 to avoid dividing by zero.
func (c *Chain) ScoreCompletion(ctx context.Context, key, completion Key) (float64, error) {
	raw, _, err := c.store.GetScore(ctx, key.String(), completion.String())
	if err != nil {
		return 0, fmt.Errorf("failed to get completion frequency: %w", err)
	}

	maximum, err := c.MaxForKey(ctx, key)
	if err != nil {
		return 0, err
	}
	if maximum == 0 {
		maximum = 1
	}

	return raw / maximum * normalizeTo, nil
}

// ScoreLine scores a token sequence against the model: the indexing window
// slides across the line, every valid (key, completion) pair is scored with
// ScoreCompletion, and the total is averaged over the pairs examined. A line
// with no valid pairs scores 0. Scoring never mutates the model.
func (c *Chain) ScoreLine(ctx context.Context, line []string) (float64, error) {
	var total float64
	var count int

	for offset := 0; offset+c.keyLength <= len(line); offset++ {
		key, completion, ok := keyCompletionAt(line, offset, c.keyLength, c.completionLength, c.namespace)
		if !ok {
			break
		}

		score, err := c.ScoreCompletion(ctx, key, completion)
		if err != nil {
			return 0, fmt.Errorf("failed to score window at offset %d: %w", offset, err)
		}

		total += score
		count++
	}

	if count == 0 {
		return 0, nil
	}

	return total / float64(count), nil
}
