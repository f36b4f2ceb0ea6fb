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

package chainstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/markov-d/markov-chain-manager/pkg/chainstore"
)

// testCommonStoreBehavior runs a test suite for any Store implementation.
// storeFactory should return a fresh store instance for each test to ensure
// test isolation.
func testCommonStoreBehavior(t *testing.T, storeFactory func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("IncrementAndGetScore", func(t *testing.T) {
		store := storeFactory(t)
		testIncrementAndGetScore(t, ctx, store)
	})

	t.Run("RankedRanges", func(t *testing.T) {
		store := storeFactory(t)
		testRankedRanges(t, ctx, store)
	})

	t.Run("ListMembers", func(t *testing.T) {
		store := storeFactory(t)
		testListMembers(t, ctx, store)
	})

	t.Run("KeysMatchingAndDelete", func(t *testing.T) {
		store := storeFactory(t)
		testKeysMatchingAndDelete(t, ctx, store)
	})

	t.Run("RandomKey", func(t *testing.T) {
		store := storeFactory(t)
		testRandomKey(t, ctx, store)
	})

	t.Run("ConcurrentIncrements", func(t *testing.T) {
		store := storeFactory(t)
		testConcurrentIncrements(t, ctx, store)
	})
}

// testIncrementAndGetScore tests that increments create members and
// accumulate.
func testIncrementAndGetScore(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	score, err := store.IncrScore(ctx, "test:i:ate", "a", 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	score, err = store.IncrScore(ctx, "test:i:ate", "a", 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, score)

	score, found, err := store.GetScore(ctx, "test:i:ate", "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2.0, score)

	// Absent member and absent key both report not-found, not an error.
	_, found, err = store.GetScore(ctx, "test:i:ate", "pizza")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.GetScore(ctx, "test:stupidkey", "a")
	require.NoError(t, err)
	assert.False(t, found)
}

// testRankedRanges tests descending and ascending ranked retrieval.
func testRankedRanges(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	for i := 0; i < 3; i++ {
		_, err := store.IncrScore(ctx, "test:i:ate", "a", 1)
		require.NoError(t, err)
	}
	_, err := store.IncrScore(ctx, "test:i:ate", "one", 1)
	require.NoError(t, err)

	top, err := store.TopMembers(ctx, "test:i:ate", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, Member{Member: "a", Score: 3}, top[0])

	bottom, err := store.BottomMembers(ctx, "test:i:ate", 1)
	require.NoError(t, err)
	require.Len(t, bottom, 1)
	assert.Equal(t, Member{Member: "one", Score: 1}, bottom[0])

	// Requesting more members than exist returns all of them.
	top, err = store.TopMembers(ctx, "test:i:ate", 10)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	// Absent keys yield empty ranges.
	top, err = store.TopMembers(ctx, "test:stupidkey", 1)
	require.NoError(t, err)
	assert.Empty(t, top)

	bottom, err = store.BottomMembers(ctx, "test:stupidkey", 1)
	require.NoError(t, err)
	assert.Empty(t, bottom)
}

// testListMembers tests full enumeration in descending score order.
func testListMembers(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	weights := map[string]int{"a": 3, "one": 2, "the": 1}
	for member, weight := range weights {
		for i := 0; i < weight; i++ {
			_, err := store.IncrScore(ctx, "test:i:ate", member, 1)
			require.NoError(t, err)
		}
	}

	members, err := store.ListMembers(ctx, "test:i:ate")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "one", "the"}, members)

	members, err = store.ListMembers(ctx, "test:stupidkey")
	require.NoError(t, err)
	assert.Empty(t, members)
}

// testKeysMatchingAndDelete tests glob enumeration and bulk deletion.
func testKeysMatchingAndDelete(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	for _, key := range []string{"test:i:ate", "test:ate:a", "other:i:ate"} {
		_, err := store.IncrScore(ctx, key, "x", 1)
		require.NoError(t, err)
	}

	keys, err := store.KeysMatching(ctx, "test:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test:i:ate", "test:ate:a"}, keys)

	keys, err = store.KeysMatching(ctx, "test:*ate*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test:i:ate", "test:ate:a"}, keys)

	keys, err = store.KeysMatching(ctx, "test:*peach*")
	require.NoError(t, err)
	assert.Empty(t, keys)

	err = store.Delete(ctx, "test:i:ate", "test:ate:a")
	require.NoError(t, err)

	keys, err = store.KeysMatching(ctx, "test:*")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// The other namespace is untouched.
	keys, err = store.KeysMatching(ctx, "other:*")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	// Deleting nothing is a no-op.
	require.NoError(t, store.Delete(ctx))
}

// testRandomKey tests random key draws on empty and populated stores.
func testRandomKey(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	_, found, err := store.RandomKey(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.IncrScore(ctx, "test:i:ate", "a", 1)
	require.NoError(t, err)

	key, found, err := store.RandomKey(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "test:i:ate", key)
}

// testConcurrentIncrements tests that concurrent increments of the same
// member never lose updates.
func testConcurrentIncrements(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	const goroutines = 50
	const increments = 20

	var wg sync.WaitGroup
	errChan := make(chan error, goroutines*increments)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			member := fmt.Sprintf("member-%d", id%5)
			for i := 0; i < increments; i++ {
				if _, err := store.IncrScore(ctx, "test:concurrent", member, 1); err != nil {
					errChan <- err
				}
			}
		}(g)
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		require.NoError(t, err)
	}

	var total float64
	members, err := store.TopMembers(ctx, "test:concurrent", int64(goroutines))
	require.NoError(t, err)
	for _, member := range members {
		total += member.Score
	}
	assert.Equal(t, float64(goroutines*increments), total)
}
