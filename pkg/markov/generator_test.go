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

package markov_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/markov-d/markov-chain-manager/pkg/markov"
)

func TestGenerateFollowsSinglePathChain(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)

	require.NoError(t, chain.AddLine(ctx, []string{"the", "quick", "brown", "fox"}))

	// Every key has exactly one completion, so the walk is deterministic.
	out, err := chain.Generate(ctx, &GenerateOptions{
		Seed:             []string{"the", "quick"},
		MaxWords:         100,
		CountPunctuation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, out)
}

func TestGenerateNeverEmitsStopSentinel(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)
	trainFruitLines(t, ctx, chain)

	for i := 0; i < 20; i++ {
		out, err := chain.Generate(ctx, &GenerateOptions{
			MaxWords:         6,
			CountPunctuation: true,
		})
		require.NoError(t, err)
		assert.NotContains(t, out, Stop)
		assert.LessOrEqual(t, len(out), 6)
	}
}

func TestGenerateMaxWords(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)

	require.NoError(t, chain.AddLine(ctx, []string{"a", "b", "c", "d"}))

	tests := []struct {
		name     string
		maxWords int
		want     []string
	}{
		{
			name:     "walk ends naturally below the bound",
			maxWords: 100,
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name:     "sentinel lands exactly on the bound",
			maxWords: 5,
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name:     "exact hit is appended",
			maxWords: 4,
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name:     "bound cuts the walk short",
			maxWords: 3,
			want:     []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := chain.Generate(ctx, &GenerateOptions{
				Seed:             []string{"a", "b"},
				MaxWords:         tt.maxWords,
				CountPunctuation: true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

// TestGenerateDropsOvershootingCompletion checks that a multi-token completion
// whose appended length would pass MaxWords is dropped rather than truncated.
func TestGenerateDropsOvershootingCompletion(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, func(c *Config) {
		c.KeyLength = 1
		c.CompletionLength = 2
	})

	require.NoError(t, chain.AddLine(ctx, []string{"x", "y", "z"}))

	// The only completion under "x" is the two-token "y:z"; appending it to
	// the one-token seed would reach 3 > 2.
	out, err := chain.Generate(ctx, &GenerateOptions{
		Seed:             []string{"x"},
		MaxWords:         2,
		CountPunctuation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out)
}

func TestGenerateCountPunctuation(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, func(c *Config) {
		c.KeyLength = 1
	})

	require.NoError(t, chain.AddLine(ctx, []string{"a", ",", "b"}))

	// Counted, the comma fills the budget.
	out, err := chain.Generate(ctx, &GenerateOptions{
		Seed:             []string{"a"},
		MaxWords:         2,
		CountPunctuation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ","}, out)

	// Not counted, the walk continues past it.
	out, err = chain.Generate(ctx, &GenerateOptions{
		Seed:             []string{"a"},
		MaxWords:         2,
		CountPunctuation: false,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ",", "b"}, out)
}

func TestGenerateQualityFloor(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)
	trainFruitLines(t, ctx, chain)

	// Under "test:i:ate", "a" scores 100 and "one" scores 50: a floor of 75
	// always forces the "a" branch.
	for i := 0; i < 20; i++ {
		out, err := chain.Generate(ctx, &GenerateOptions{
			Seed:             []string{"i", "ate"},
			MaxWords:         3,
			QualityFloor:     75,
			CountPunctuation: true,
		})
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, "a", out[2])
	}
}

// TestGenerateQualityFloorDeadEnd checks that a floor no completion can clear
// ends the walk at the seed.
func TestGenerateQualityFloorDeadEnd(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)

	require.NoError(t, chain.AddLine(ctx, []string{"i", "ate", "a", "peach"}))
	require.NoError(t, chain.AddLine(ctx, []string{"i", "ate", "one", "peach"}))
	require.NoError(t, chain.AddLine(ctx, []string{"i", "ate", "a", "peach"}))

	// "a" scores 100 and "one" 50; a floor above 100 rejects both.
	out, err := chain.Generate(ctx, &GenerateOptions{
		Seed:             []string{"i", "ate"},
		MaxWords:         100,
		QualityFloor:     101,
		CountPunctuation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"i", "ate"}, out)
}

func TestGenerateRelevantTerms(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)
	trainFruitLines(t, ctx, chain)

	for i := 0; i < 10; i++ {
		out, err := chain.Generate(ctx, &GenerateOptions{
			MaxWords:         10,
			CountPunctuation: true,
			RelevantTerms:    []string{"sandwich"},
		})
		require.NoError(t, err)
		assert.Contains(t, out, "sandwich")
	}
}

func TestGenerateRelevantTermsNoMatch(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)
	trainFruitLines(t, ctx, chain)

	out, err := chain.Generate(ctx, &GenerateOptions{
		MaxWords:         10,
		CountPunctuation: true,
		RelevantTerms:    []string{"spaceship"},
	})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGenerateEmptyModel(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)

	out, err := chain.Generate(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

// TestGenerateUnknownSeed checks that a seed with no completions in the model
// is returned unchanged.
func TestGenerateUnknownSeed(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, nil)
	trainFruitLines(t, ctx, chain)

	out, err := chain.Generate(ctx, &GenerateOptions{
		Seed:             []string{"purple", "monkey"},
		MaxWords:         10,
		CountPunctuation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"purple", "monkey"}, out)
}

func TestGenerateSeedShorterThanKeyLength(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, func(c *Config) {
		c.KeyLength = 1
	})

	require.NoError(t, chain.AddLine(ctx, []string{"go", "routines", "are", "cheap"}))

	out, err := chain.Generate(ctx, &GenerateOptions{
		Seed:             []string{"go"},
		MaxWords:         10,
		CountPunctuation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "routines", "are", "cheap"}, out)
}
