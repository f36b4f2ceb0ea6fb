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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/markov-d/markov-chain-manager/pkg/chainstore/metrics"
)

type instrumentedStore struct {
	next Store
}

// NewInstrumentedStore wraps a Store and emits metrics for writes, reads, and
// deletes.
func NewInstrumentedStore(next Store) Store {
	return &instrumentedStore{next: next}
}

func (m *instrumentedStore) IncrScore(ctx context.Context, key, member string, delta float64) (float64, error) {
	score, err := m.next.IncrScore(ctx, key, member, delta)
	metrics.Increments.Inc()
	return score, err
}

func (m *instrumentedStore) TopMembers(ctx context.Context, key string, n int64) ([]Member, error) {
	defer m.observeRead()()
	return m.next.TopMembers(ctx, key, n)
}

func (m *instrumentedStore) BottomMembers(ctx context.Context, key string, n int64) ([]Member, error) {
	defer m.observeRead()()
	return m.next.BottomMembers(ctx, key, n)
}

func (m *instrumentedStore) GetScore(ctx context.Context, key, member string) (float64, bool, error) {
	defer m.observeRead()()
	return m.next.GetScore(ctx, key, member)
}

func (m *instrumentedStore) ListMembers(ctx context.Context, key string) ([]string, error) {
	defer m.observeRead()()
	return m.next.ListMembers(ctx, key)
}

func (m *instrumentedStore) RandomKey(ctx context.Context) (string, bool, error) {
	defer m.observeRead()()
	return m.next.RandomKey(ctx)
}

func (m *instrumentedStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	defer m.observeRead()()
	return m.next.KeysMatching(ctx, pattern)
}

func (m *instrumentedStore) Delete(ctx context.Context, keys ...string) error {
	err := m.next.Delete(ctx, keys...)
	metrics.Deletes.Add(float64(len(keys)))
	return err
}

func (m *instrumentedStore) observeRead() func() {
	metrics.ReadRequests.Inc()
	timer := prometheus.NewTimer(metrics.ReadLatency)
	return func() { timer.ObserveDuration() }
}
