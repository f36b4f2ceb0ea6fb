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

	"k8s.io/klog/v2"

	"github.com/markov-d/markov-chain-manager/pkg/utils/logging"
)

// AddLine indexes one training line: a key window of keyLength tokens slides
// across the line, and for every (key, completion) pair the completion's
// frequency under the key is incremented atomically in the store.
//
// The scan is a single iterative pass; it ends once the window no longer has
// keyLength tokens remaining, or earlier when a Stop sentinel enters the key
// window or (for completionLength > 1) the completion window is empty.
func (c *Chain) AddLine(ctx context.Context, line []string) error {
	if len(line) == 0 {
		return fmt.Errorf("%w: empty training line", ErrInvalidInput)
	}

	traceLogger := klog.FromContext(ctx).V(logging.TRACE).WithName("markov.Chain.AddLine")

	for offset := 0; offset+c.keyLength <= len(line); offset++ {
		key, completion, ok := keyCompletionAt(line, offset, c.keyLength, c.completionLength, c.namespace)
		if !ok {
			break
		}

		if _, err := c.store.IncrScore(ctx, key.String(), completion.String(), 1); err != nil {
			return fmt.Errorf("failed to index window at offset %d: %w", offset, err)
		}

		if c.scoreCache != nil {
			c.scoreCache.invalidate(key)
		}

		traceLogger.Info("indexed window", "key", key.String(), "completion", completion.String())
	}

	return nil
}
