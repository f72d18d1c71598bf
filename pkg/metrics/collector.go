// Copyright 2025 The ScanWrite Authors.
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
	// Searches counts completed search sessions.
	Searches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "engine", Name: "searches_total",
		Help: "Total number of search sessions run",
	})
	// Inferences counts oracle calls issued by search sessions. This is
	// the authoritative cost metric of the engine.
	Inferences = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "engine", Name: "inferences_total",
		Help: "Total number of oracle inference calls",
	})
	// IterationBoundHits counts searches terminated by the iteration
	// bound; a growing value signals mistuned beam parameters.
	IterationBoundHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "engine", Name: "iteration_bound_hits_total",
		Help: "Number of searches terminated by the iteration safety bound",
	})
	// SearchLatency logs latency of search sessions.
	SearchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prediction", Subsystem: "engine", Name: "search_latency_seconds",
		Help:    "Latency of search sessions in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// DistStoreLookups counts Get() calls on the distribution store.
	DistStoreLookups = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "diststore", Name: "lookups_total",
		Help: "Total number of distribution store lookups",
	})
	// DistStoreHits counts distribution store lookups that found a value.
	DistStoreHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "diststore", Name: "hits_total",
		Help: "Number of distribution store lookups that hit",
	})
	// DistStoreAdmissions counts distributions written to the store.
	DistStoreAdmissions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "diststore", Name: "admissions_total",
		Help: "Total number of distributions admitted to the store",
	})
	// DistStoreLookupLatency logs latency of store lookups.
	DistStoreLookupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prediction", Subsystem: "diststore", Name: "lookup_latency_seconds",
		Help:    "Latency of distribution store lookups in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ServiceRequests counts prediction requests accepted by the service.
	ServiceRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "service", Name: "requests_total",
		Help: "Total number of prediction requests received",
	})
	// ServiceCoalesced counts pending requests superseded by newer ones.
	ServiceCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction", Subsystem: "service", Name: "coalesced_total",
		Help: "Number of pending requests dropped in favor of newer ones",
	})
)

// Collectors returns a slice of all registered Prometheus collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		Searches, Inferences, IterationBoundHits, SearchLatency,
		DistStoreLookups, DistStoreHits, DistStoreAdmissions, DistStoreLookupLatency,
		ServiceRequests, ServiceCoalesced,
	}
}

var registerMetricsOnce = sync.Once{}

// Register registers all metrics with the controller-runtime registry.
func Register() {
	registerMetricsOnce.Do(func() {
		metrics.Registry.MustRegister(Collectors()...)
	})
}

// StartMetricsLogging spawns a goroutine that logs current metric values
// every interval.
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
	searches, err := counterValue(Searches)
	if err != nil {
		return
	}

	inferences, err := counterValue(Inferences)
	if err != nil {
		return
	}

	boundHits, err := counterValue(IterationBoundHits)
	if err != nil {
		return
	}

	lookups, err := counterValue(DistStoreLookups)
	if err != nil {
		return
	}

	hits, err := counterValue(DistStoreHits)
	if err != nil {
		return
	}

	var latencyMetric dto.Metric
	if err := SearchLatency.Write(&latencyMetric); err != nil {
		return
	}
	latencyCount := latencyMetric.GetHistogram().GetSampleCount()
	latencySum := latencyMetric.GetHistogram().GetSampleSum()

	klog.FromContext(ctx).WithName("metrics").Info("metrics beat",
		"searches", searches,
		"inferences", inferences,
		"iteration_bound_hits", boundHits,
		"diststore_lookups", lookups,
		"diststore_hits", hits,
		"search_latency_count", latencyCount,
		"search_latency_sum", latencySum,
	)
}

func counterValue(c prometheus.Counter) (float64, error) {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0, err
	}

	return m.GetCounter().GetValue(), nil
}
