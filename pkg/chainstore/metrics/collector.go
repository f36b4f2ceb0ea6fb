// Copyright 2025 The markov-d Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"k8s.io/klog/v2"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Increments counts how many member-score increments have been applied.
	Increments = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "markov", Subsystem: "store", Name: "increments_total",
		Help: "Total number of member score increments",
	})
	// Deletes counts how many keys have been deleted.
	Deletes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "markov", Subsystem: "store", Name: "deletes_total",
		Help: "Total number of deleted keys",
	})

	// ReadRequests counts how many read calls have been made.
	ReadRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "markov", Subsystem: "store", Name: "read_requests_total",
		Help: "Total number of read calls",
	})
	// ReadLatency logs latency of read calls.
	ReadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "markov", Subsystem: "store", Name: "read_latency_seconds",
		Help:    "Latency of read calls in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// Collectors returns a slice of all registered Prometheus collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		Increments, Deletes,
		ReadRequests, ReadLatency,
	}
}

var registerMetricsOnce = sync.Once{}

// Register registers all metrics with the controller-runtime registry.
func Register() {
	registerMetricsOnce.Do(func() {
		metrics.Registry.MustRegister(Collectors()...)
	})
}

// StartMetricsLogging spawns a goroutine that logs current metric values every
// interval.
func StartMetricsLogging(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			logMetrics(ctx)
		}
	}()
}

func logMetrics(ctx context.Context) {
	var m dto.Metric

	err := Increments.Write(&m)
	if err != nil {
		return
	}
	increments := m.GetCounter().GetValue()

	err = Deletes.Write(&m)
	if err != nil {
		return
	}
	deletes := m.GetCounter().GetValue()

	err = ReadRequests.Write(&m)
	if err != nil {
		return
	}
	reads := m.GetCounter().GetValue()

	var latencyMetric dto.Metric
	err = ReadLatency.Write(&latencyMetric)
	if err != nil {
		return
	}
	latencyCount := latencyMetric.GetHistogram().GetSampleCount()
	latencySum := latencyMetric.GetHistogram().GetSampleSum()

	klog.FromContext(ctx).WithName("metrics").Info("metrics beat",
		"increments", increments,
		"deletes", deletes,
		"reads", reads,
		"latency_count", latencyCount,
		"latency_sum", latencySum,
		"latency_avg", latencySum/float64(latencyCount),
	)
}
