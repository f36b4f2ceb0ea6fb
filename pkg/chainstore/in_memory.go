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
	"math/rand/v2"
	"path"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultInMemoryStoreSize bounds the number of keys held in memory.
const defaultInMemoryStoreSize = 1e6

// InMemoryStoreConfig holds the configuration for the InMemoryStore.
type InMemoryStoreConfig struct {
	// Size is the maximum number of keys that can be stored.
	Size int `json:"size"`
}

// DefaultInMemoryStoreConfig returns a default configuration for the
// InMemoryStore.
func DefaultInMemoryStoreConfig() *InMemoryStoreConfig {
	return &InMemoryStoreConfig{
		Size: defaultInMemoryStoreSize,
	}
}

// NewInMemoryStore creates a new InMemoryStore instance.
func NewInMemoryStore(cfg *InMemoryStoreConfig) (*InMemoryStore, error) {
	if cfg == nil {
		cfg = DefaultInMemoryStoreConfig()
	}

	cache, err := lru.New[string, *memberSet](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory store: %w", err)
	}

	return &InMemoryStore{
		data: cache,
	}, nil
}

// InMemoryStore is an in-memory implementation of the Store interface.
// The key space is LRU-bounded; each key holds a mutex-guarded member set.
type InMemoryStore struct {
	data *lru.Cache[string, *memberSet]
}

var _ Store = &InMemoryStore{}

// memberSet holds the scored members of one key.
type memberSet struct {
	// mu protects scores during check-and-set operations.
	mu     sync.Mutex
	scores map[string]float64
}

// ordered returns the members sorted by score. Ties break on the member
// string so that repeated reads are deterministic.
func (s *memberSet) ordered(descending bool) []Member {
	s.mu.Lock()
	members := make([]Member, 0, len(s.scores))
	for member, score := range s.scores {
		members = append(members, Member{Member: member, Score: score})
	}
	s.mu.Unlock()

	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			if descending {
				return members[i].Score > members[j].Score
			}
			return members[i].Score < members[j].Score
		}
		return members[i].Member < members[j].Member
	})

	return members
}

// IncrScore atomically increments the score of member under key by delta.
func (m *InMemoryStore) IncrScore(_ context.Context, key, member string, delta float64) (float64, error) {
	var set *memberSet
	var found bool

	set, found = m.data.Get(key)
	if !found {
		newSet := &memberSet{scores: make(map[string]float64)}

		// Use existing if another goroutine added the key first.
		// This is a bounded retry (1) - not perfectly safe but sufficient for
		// practical workloads.
		contains, _ := m.data.ContainsOrAdd(key, newSet)
		if contains {
			set, found = m.data.Get(key)
			if !found { // Extremely irregular workload pattern - key evicted
				m.data.Add(key, newSet)
				set = newSet
			}
		} else {
			set = newSet
		}
	}

	set.mu.Lock()
	set.scores[member] += delta
	score := set.scores[member]
	set.mu.Unlock()

	return score, nil
}

// TopMembers returns up to n members of key ordered by descending score.
func (m *InMemoryStore) TopMembers(_ context.Context, key string, n int64) ([]Member, error) {
	return m.rangeMembers(key, n, true), nil
}

// BottomMembers returns up to n members of key ordered by ascending score.
func (m *InMemoryStore) BottomMembers(_ context.Context, key string, n int64) ([]Member, error) {
	return m.rangeMembers(key, n, false), nil
}

func (m *InMemoryStore) rangeMembers(key string, n int64, descending bool) []Member {
	if n <= 0 {
		return nil
	}

	set, found := m.data.Get(key)
	if !found {
		return nil
	}

	members := set.ordered(descending)
	if int64(len(members)) > n {
		members = members[:n]
	}

	return members
}

// GetScore returns the score of member under key.
func (m *InMemoryStore) GetScore(_ context.Context, key, member string) (float64, bool, error) {
	set, found := m.data.Get(key)
	if !found {
		return 0, false, nil
	}

	set.mu.Lock()
	score, ok := set.scores[member]
	set.mu.Unlock()

	return score, ok, nil
}

// ListMembers returns all members of key ordered by descending score.
func (m *InMemoryStore) ListMembers(_ context.Context, key string) ([]string, error) {
	set, found := m.data.Get(key)
	if !found {
		return nil, nil
	}

	ordered := set.ordered(true)
	members := make([]string, len(ordered))
	for i, member := range ordered {
		members[i] = member.Member
	}

	return members, nil
}

// RandomKey returns a uniformly random key from the store.
func (m *InMemoryStore) RandomKey(_ context.Context) (string, bool, error) {
	keys := m.data.Keys()
	if len(keys) == 0 {
		return "", false, nil
	}

	return keys[rand.IntN(len(keys))], true, nil
}

// KeysMatching returns all keys matching a glob-style pattern.
func (m *InMemoryStore) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for _, key := range m.data.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, err)
		}
		if matched {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Delete removes the given keys and their member sets.
func (m *InMemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.data.Remove(key)
	}

	return nil
}
