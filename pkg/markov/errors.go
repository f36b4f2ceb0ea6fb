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

import "errors"

var (
	// ErrInvalidInput reports a malformed token sequence, e.g. an empty one.
	// It is returned before any store mutation takes place.
	ErrInvalidInput = errors.New("invalid token sequence")

	// ErrNoKeysAvailable reports that the namespace holds no usable keys at
	// seed-selection time. An untrained model is an expected steady state, so
	// generation resolves this to an empty result rather than a failure.
	ErrNoKeysAvailable = errors.New("no keys available in namespace")

	// ErrNoMatchingKeys reports that relevance-biased seed selection found no
	// key containing any of the supplied terms. It is distinct from
	// ErrNoKeysAvailable so callers can tell "no data" from "no data on
	// topic".
	ErrNoMatchingKeys = errors.New("no keys match the relevance terms")
)
