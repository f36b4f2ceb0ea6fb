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

//nolint:testpackage // allow tests to run in the same package
package e2e

import (
	"strings"

	"github.com/markov-d/markov-chain-manager/pkg/markov"
)

// TestBasicE2E verifies the full train-then-score round trip: a seen phrase
// scores at the ceiling and an unseen variation scores below it.
func (s *ChainSuite) TestBasicE2E() {
	s.trainCorpus(
		"i ate a peach",
		"i ate one peach",
		"i ate a sandwich",
	)

	score, err := s.chain.ScoreLine(s.ctx, strings.Fields("i ate a peach"))
	s.Require().NoError(err)
	s.InDelta(100.0, score, 1e-9)

	score, err = s.chain.ScoreLine(s.ctx, strings.Fields("i ate a pizza"))
	s.Require().NoError(err)
	s.InDelta(100.0/3, score, 1e-9)
}

// TestGenerationE2E verifies generation over a trained model: the output is
// non-empty, bounded and free of the stop sentinel.
func (s *ChainSuite) TestGenerationE2E() {
	s.trainCorpus(
		"the quick brown fox jumps over the lazy dog",
		"the quick brown fox eats a peach",
	)

	for i := 0; i < 10; i++ {
		out, err := s.chain.Generate(s.ctx, &markov.GenerateOptions{
			MaxWords:         12,
			CountPunctuation: true,
		})
		s.Require().NoError(err)
		s.NotEmpty(out)
		s.LessOrEqual(len(out), 12)
		s.NotContains(out, markov.Stop)
	}
}

// TestRelevantGenerationE2E verifies topic-biased generation lands on the
// requested term.
func (s *ChainSuite) TestRelevantGenerationE2E() {
	s.trainCorpus(
		"i ate a peach",
		"the sandwich was stale",
	)

	out, err := s.chain.Generate(s.ctx, &markov.GenerateOptions{
		MaxWords:         12,
		CountPunctuation: true,
		RelevantTerms:    []string{"sandwich"},
	})
	s.Require().NoError(err)
	s.Contains(out, "sandwich")
}

// TestDeleteModelE2E verifies teardown returns the namespace to the untrained
// steady state.
func (s *ChainSuite) TestDeleteModelE2E() {
	s.trainCorpus("i ate a peach")

	s.Require().NoError(s.chain.DeleteModel(s.ctx))

	out, err := s.chain.Generate(s.ctx, nil)
	s.Require().NoError(err)
	s.Nil(out)

	score, err := s.chain.ScoreLine(s.ctx, strings.Fields("i ate a peach"))
	s.Require().NoError(err)
	s.Zero(score)
}
