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
	"math/rand/v2"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/markov-d/markov-chain-manager/pkg/utils"
	"github.com/markov-d/markov-chain-manager/pkg/utils/logging"
)

const (
	// maxRandomSeedDraws bounds the rejection loop of random seed selection.
	// The reference behavior retried forever; a punctuation-saturated key
	// space would spin, so the loop gives up with ErrNoKeysAvailable instead.
	maxRandomSeedDraws = 100
	// maxRelevantSeedDraws bounds the rejection loop of relevance-biased
	// selection. After exhaustion the last candidate is kept.
	maxRelevantSeedDraws = 10
)

// PickSeed chooses a starting key for generation together with its decoded
// token sequence (namespace stripped). A non-empty relevantTerms set biases
// the choice toward keys containing at least one term; otherwise the key is
// drawn uniformly from the namespace's key space, rejecting seeds that
// contain punctuation tokens.
//
// Returns ErrNoKeysAvailable when the key space is empty and
// ErrNoMatchingKeys when no key contains any relevance term.
func (c *Chain) PickSeed(ctx context.Context, relevantTerms sets.Set[string]) (Key, []string, error) {
	if relevantTerms.Len() > 0 {
		return c.pickRelevantSeed(ctx, relevantTerms)
	}

	return c.pickRandomSeed(ctx)
}

// pickRandomSeed draws uniformly from the namespace's key space until a seed
// free of punctuation tokens is found, bounded by maxRandomSeedDraws.
func (c *Chain) pickRandomSeed(ctx context.Context) (Key, []string, error) {
	keys, err := c.namespaceKeys(ctx)
	if err != nil {
		return "", nil, err
	}

	if len(keys) == 0 {
		return "", nil, ErrNoKeysAvailable
	}

	for draw := 0; draw < maxRandomSeedDraws; draw++ {
		key := EncodedKey(keys[rand.IntN(len(keys))])
		seed := key.SeedTokens(c.namespace)
		if !containsPunctuation(seed) {
			return key, seed, nil
		}
	}

	klog.FromContext(ctx).V(logging.DEBUG).WithName("markov.Chain.PickSeed").Info(
		"giving up on punctuation-saturated key space", "draws", maxRandomSeedDraws)

	return "", nil, ErrNoKeysAvailable
}

// pickRelevantSeed draws uniformly among keys whose token sequence contains
// at least one relevance term, redrawing a bounded number of times when the
// pick contains punctuation and then keeping the last candidate.
func (c *Chain) pickRelevantSeed(ctx context.Context, relevantTerms sets.Set[string]) (Key, []string, error) {
	matches := sets.New[string]()
	for term := range relevantTerms {
		keys, err := c.store.KeysMatching(ctx, c.keyPattern("*"+term+"*"))
		if err != nil {
			return "", nil, fmt.Errorf("failed to find keys for term %q: %w", term, err)
		}
		matches.Insert(keys...)
	}

	if matches.Len() == 0 {
		return "", nil, ErrNoMatchingKeys
	}

	candidates := matches.UnsortedList()

	var key Key
	var seed []string
	for draw := 0; draw < maxRelevantSeedDraws; draw++ {
		key = EncodedKey(candidates[rand.IntN(len(candidates))])
		seed = key.SeedTokens(c.namespace)
		if !containsPunctuation(seed) {
			break
		}
	}

	return key, seed, nil
}

// namespaceKeys enumerates the chain's key space. A chain without a namespace
// falls back to a single uniformly random store key, the only option when the
// key space cannot be narrowed by prefix.
func (c *Chain) namespaceKeys(ctx context.Context) ([]string, error) {
	if c.namespace == "" {
		key, found, err := c.store.RandomKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get random key: %w", err)
		}
		if !found {
			return nil, nil
		}

		return []string{key}, nil
	}

	keys, err := c.store.KeysMatching(ctx, c.keyPattern("*"))
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate namespace keys: %w", err)
	}

	return keys, nil
}

// countTokens counts the tokens of a sequence, skipping punctuation-class
// tokens when countPunctuation is false.
func countTokens(tokens []string, countPunctuation bool) int {
	if countPunctuation {
		return len(tokens)
	}

	return len(utils.SliceFilter(tokens, func(token string) bool {
		return !punctuation.Has(token)
	}))
}
