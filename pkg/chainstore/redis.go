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
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/markov-d/markov-chain-manager/pkg/utils"
)

// scanBatchSize is the COUNT hint passed to SCAN when enumerating keys.
const scanBatchSize = 512

// RedisStoreConfig holds the configuration for the RedisStore.
type RedisStoreConfig struct {
	Address string `json:"address,omitempty"` // Redis server address
}

func DefaultRedisStoreConfig() *RedisStoreConfig {
	return &RedisStoreConfig{
		Address: "redis://127.0.0.1:6379",
	}
}

// NewRedisStore creates a new RedisStore instance.
func NewRedisStore(config *RedisStoreConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisStoreConfig()
	}

	if !strings.HasPrefix(config.Address, "redis://") &&
		!strings.HasPrefix(config.Address, "rediss://") &&
		!strings.HasPrefix(config.Address, "unix://") {
		config.Address = "redis://" + config.Address
	}

	redisOpt, err := redis.ParseURL(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redisURL: %w", err)
	}

	redisClient := redis.NewClient(redisOpt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		RedisClient: redisClient,
	}, nil
}

// RedisStore implements the Store interface using Redis sorted sets as the
// backing ordered multisets.
type RedisStore struct {
	RedisClient *redis.Client
}

var _ Store = &RedisStore{}

// IncrScore atomically increments the score of member under key by delta.
// ZINCRBY creates the key and the member as needed.
func (r *RedisStore) IncrScore(ctx context.Context, key, member string, delta float64) (float64, error) {
	score, err := r.RedisClient.ZIncrBy(ctx, key, delta, member).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment member score: %w", err)
	}

	return score, nil
}

// TopMembers returns up to n members of key ordered by descending score.
func (r *RedisStore) TopMembers(ctx context.Context, key string, n int64) ([]Member, error) {
	if n <= 0 {
		return nil, nil
	}

	zs, err := r.RedisClient.ZRevRangeWithScores(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range members by descending score: %w", err)
	}

	return zSliceToMembers(zs), nil
}

// BottomMembers returns up to n members of key ordered by ascending score.
func (r *RedisStore) BottomMembers(ctx context.Context, key string, n int64) ([]Member, error) {
	if n <= 0 {
		return nil, nil
	}

	zs, err := r.RedisClient.ZRangeWithScores(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range members by ascending score: %w", err)
	}

	return zSliceToMembers(zs), nil
}

// GetScore returns the score of member under key.
func (r *RedisStore) GetScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := r.RedisClient.ZScore(ctx, key, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("failed to get member score: %w", err)
	}

	return score, true, nil
}

// ListMembers returns all members of key ordered by descending score.
func (r *RedisStore) ListMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.RedisClient.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// RandomKey returns a uniformly random key from the store.
func (r *RedisStore) RandomKey(ctx context.Context) (string, bool, error) {
	key, err := r.RedisClient.RandomKey(ctx).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("failed to get random key: %w", err)
	}

	return key, true, nil
}

// KeysMatching returns all keys matching a glob-style pattern.
// The enumeration uses SCAN with MATCH rather than KEYS to avoid blocking
// the server on large keyspaces.
func (r *RedisStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		batch, next, err := r.RedisClient.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// Delete removes the given keys and their member sets.
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.RedisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

func zSliceToMembers(zs []redis.Z) []Member {
	return utils.SliceMap(zs, func(z redis.Z) Member {
		member, _ := z.Member.(string)
		return Member{Member: member, Score: z.Score}
	})
}
