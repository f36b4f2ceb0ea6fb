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
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	// Separator joins tokens into store keys.
	Separator = ":"
	// Stop is the sentinel completion marking end-of-sequence. It is never a
	// valid training token.
	Stop = "\x02"
)

// punctuation is the token class rejected in generation seeds and skipped by
// punctuation-insensitive token counting.
var punctuation = sets.New(",", ".", ";", "!", "?", "(", ")", "...", "....", ".....")

// IsPunctuation reports whether a token belongs to the punctuation class.
func IsPunctuation(token string) bool {
	return punctuation.Has(token)
}

func containsPunctuation(tokens []string) bool {
	for _, token := range tokens {
		if punctuation.Has(token) {
			return true
		}
	}

	return false
}

// Key is an encoded, namespace-qualified window of tokens addressing one
// weighted completion set in the store. Completions are encoded the same way
// without the namespace prefix.
type Key string

// NewKey encodes an ordered token window into a Key. A non-empty namespace is
// prepended with the same separator. An empty token slice is rejected with
// ErrInvalidInput.
func NewKey(tokens []string, namespace string) (Key, error) {
	if len(tokens) == 0 {
		return "", ErrInvalidInput
	}

	joined := strings.Join(tokens, Separator)
	if namespace != "" {
		joined = namespace + Separator + joined
	}

	return Key(joined), nil
}

// EncodedKey wraps an already-encoded key string. It exists so callers holding
// raw store keys never round-trip through token slices.
func EncodedKey(s string) Key {
	return Key(s)
}

// String returns the raw store key.
func (k Key) String() string {
	return string(k)
}

// Tokens splits the key back into its token sequence. The split is not
// guaranteed to round-trip when tokens themselves contain the separator
// character; that ambiguity is accepted.
func (k Key) Tokens() []string {
	return strings.Split(string(k), Separator)
}

// SeedTokens returns the decoded token sequence with the namespace element
// stripped, suitable as an initial generation seed.
func (k Key) SeedTokens(namespace string) []string {
	tokens := k.Tokens()
	if namespace != "" && len(tokens) > 0 && tokens[0] == namespace {
		tokens = tokens[1:]
	}

	return tokens
}

// KeyAndCompletion returns the first (key, completion) window pair of a line,
// per the indexing rules: the key is the leading keyLength tokens qualified
// with the namespace; the completion is the following completionLength tokens,
// or the Stop sentinel when completionLength is 1 and the line ends exactly at
// the key boundary. The boolean is false when the line has no valid first
// window (too short, a Stop inside the key window, or an empty completion
// window for completionLength > 1).
func KeyAndCompletion(line []string, keyLength, completionLength int, namespace string) (Key, Key, bool) {
	return keyCompletionAt(line, 0, keyLength, completionLength, namespace)
}

// keyCompletionAt computes the window pair starting at offset. See
// KeyAndCompletion for the rules.
func keyCompletionAt(line []string, offset, keyLength, completionLength int, namespace string) (Key, Key, bool) {
	if offset+keyLength > len(line) {
		return "", "", false
	}

	window := line[offset : offset+keyLength]
	for _, token := range window {
		if token == Stop {
			return "", "", false
		}
	}

	key, err := NewKey(window, namespace)
	if err != nil {
		return "", "", false
	}

	start := offset + keyLength
	if completionLength > 1 {
		end := min(start+completionLength, len(line))
		if start >= end {
			return "", "", false
		}

		completion, err := NewKey(line[start:end], "")
		if err != nil {
			return "", "", false
		}

		return key, completion, true
	}

	if start >= len(line) {
		// End of line reached: termination is encoded as a Stop completion.
		return key, Key(Stop), true
	}

	return key, Key(line[start]), true
}
