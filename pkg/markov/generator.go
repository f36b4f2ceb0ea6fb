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
	"errors"
	"fmt"
	"math/rand/v2"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/markov-d/markov-chain-manager/pkg/utils"
	"github.com/markov-d/markov-chain-manager/pkg/utils/logging"
)

const (
	defaultMaxWords = 1000
	// stepsPerWord scales MaxWords into a hard bound on walk steps.
	stepsPerWord = 10
)

// GenerateOptions configures one generation run.
type GenerateOptions struct {
	// Seed is the initial token sequence. When empty, a starting key is
	// chosen by seed selection.
	Seed []string
	// MaxWords bounds the length of the output sequence. A completion whose
	// appended length would pass MaxWords is dropped and generation
	// terminates; an exact hit is appended.
	MaxWords int
	// QualityFloor, when positive, is the minimum normalized score a
	// completion must clear to be accepted.
	QualityFloor float64
	// CountPunctuation controls whether punctuation-class tokens count
	// toward MaxWords.
	CountPunctuation bool
	// RelevantTerms biases seed selection and completion choice toward
	// keys and completions containing these tokens.
	RelevantTerms []string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxWords:         defaultMaxWords,
		CountPunctuation: true,
	}
}

// Generate walks the chain, growing a token sequence one completion at a
// time until the model dead-ends or MaxWords is reached. The returned
// sequence never contains the Stop sentinel. An empty or topic-less key
// space yields a nil sequence, not an error: an untrained model is a valid
// steady state.
func (c *Chain) Generate(ctx context.Context, opts *GenerateOptions) ([]string, error) {
	if opts == nil {
		opts = DefaultGenerateOptions()
	}

	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	relevantTerms := sets.New(opts.RelevantTerms...)
	debugLogger := klog.FromContext(ctx).V(logging.DEBUG).WithName("markov.Chain.Generate")

	seed := opts.Seed
	var key Key
	if len(seed) == 0 {
		var err error
		key, seed, err = c.PickSeed(ctx, relevantTerms)
		if err != nil {
			if errors.Is(err, ErrNoKeysAvailable) || errors.Is(err, ErrNoMatchingKeys) {
				debugLogger.Info("no seed available", "reason", err.Error())
				return nil, nil
			}

			return nil, err
		}
	} else {
		var err error
		key, err = c.trailingKey(seed)
		if err != nil {
			return nil, err
		}
	}

	// With punctuation not counted, a punctuation-only cycle would never
	// advance the counted total; the step bound keeps the walk finite.
	for steps := 0; steps < maxWords*stepsPerWord; steps++ {
		completion, err := c.pickCompletion(ctx, key, relevantTerms, opts.QualityFloor)
		if err != nil {
			return nil, err
		}

		if completion == "" {
			// Dead end: the key is absent or every candidate fell below the
			// quality floor.
			return stripStop(seed), nil
		}

		completionTokens := Key(completion).Tokens()
		total := countTokens(seed, opts.CountPunctuation) + countTokens(completionTokens, opts.CountPunctuation)

		switch {
		case total < maxWords:
			seed = append(seed, completionTokens...)
			key, err = c.trailingKey(seed)
			if err != nil {
				return nil, err
			}
		case total == maxWords:
			seed = append(seed, stripStop(completionTokens)...)
			return stripStop(seed), nil
		default:
			// Appending would overshoot MaxWords: drop the candidate and
			// terminate with the sequence as is.
			debugLogger.Info("dropping completion that would exceed max words",
				"completion", completion, "length", total, "maxWords", maxWords)
			return stripStop(seed), nil
		}
	}

	debugLogger.Info("terminating walk at step bound", "maxWords", maxWords)

	return stripStop(seed), nil
}

// trailingKey re-encodes the trailing keyLength tokens of the sequence as the
// current lookup key.
func (c *Chain) trailingKey(seed []string) (Key, error) {
	window := seed
	if len(window) > c.keyLength {
		window = window[len(window)-c.keyLength:]
	}

	key, err := NewKey(window, c.namespace)
	if err != nil {
		return "", fmt.Errorf("failed to encode trailing window: %w", err)
	}

	return key, nil
}

// pickCompletion draws a completion candidate for key. Candidates that are
// themselves relevance terms are preferred when terms are supplied. When a
// quality floor is set, candidates scoring below it are excluded and redrawn
// until one clears the floor or the key is exhausted. An empty string means
// no acceptable candidate exists.
func (c *Chain) pickCompletion(ctx context.Context, key Key,
	relevantTerms sets.Set[string], qualityFloor float64,
) (string, error) {
	exclude := sets.New[string]()

	for {
		candidate, err := c.drawCompletion(ctx, key, exclude, relevantTerms)
		if err != nil {
			return "", err
		}
		if candidate == "" || qualityFloor <= 0 {
			return candidate, nil
		}

		score, err := c.ScoreCompletion(ctx, key, EncodedKey(candidate))
		if err != nil {
			return "", err
		}
		if score >= qualityFloor {
			return candidate, nil
		}

		exclude.Insert(candidate)
	}
}

// drawCompletion picks uniformly among the key's completions minus the
// excluded set.
func (c *Chain) drawCompletion(ctx context.Context, key Key,
	exclude, relevantTerms sets.Set[string],
) (string, error) {
	members, err := c.store.ListMembers(ctx, key.String())
	if err != nil {
		return "", fmt.Errorf("failed to list completions: %w", err)
	}

	candidates := utils.SliceFilter(members, func(member string) bool {
		return !exclude.Has(member)
	})
	if len(candidates) == 0 {
		return "", nil
	}

	if relevantTerms.Len() > 0 {
		relevant := utils.SliceFilter(candidates, relevantTerms.Has)
		if len(relevant) > 0 {
			return relevant[rand.IntN(len(relevant))], nil
		}
	}

	return candidates[rand.IntN(len(candidates))], nil
}

// stripStop removes Stop sentinels from a token sequence.
func stripStop(tokens []string) []string {
	return utils.SliceFilter(tokens, func(token string) bool {
		return token != Stop
	})
}
