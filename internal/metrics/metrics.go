// Package metrics exposes Prometheus collectors for shard queries, shard
// health and the routing-decision cache.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "talentshard"

	// --- Subsystems ---
	ShardComponent   = "shard"
	RoutingComponent = "routing"

	// --- Outcome label values ---
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

var (
	ShardLabels = []string{"shard"}

	// QueryLatencyBuckets span fast point lookups to slow full-shard scans, in seconds.
	QueryLatencyBuckets = []float64{
		0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30,
	}
)

var (
	shardQueryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ShardComponent,
			Name:      "query_total",
			Help:      "Counter of shard queries broken out by shard and outcome.",
		},
		append(ShardLabels, "outcome"),
	)

	shardQueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: ShardComponent,
			Name:      "query_duration_seconds",
			Help:      "Shard query latency distribution in seconds.",
			Buckets:   QueryLatencyBuckets,
		},
		ShardLabels,
	)

	shardProbeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ShardComponent,
			Name:      "probe_total",
			Help:      "Counter of shard health probes broken out by shard and outcome.",
		},
		append(ShardLabels, "outcome"),
	)

	shardHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: ShardComponent,
			Name:      "healthy",
			Help:      "1 if the last probe of the shard succeeded, 0 otherwise.",
		},
		ShardLabels,
	)

	shardRecordCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: ShardComponent,
			Name:      "record_count",
			Help:      "Record count reported by the last successful probe.",
		},
		ShardLabels,
	)

	routingCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RoutingComponent,
			Name:      "cache_lookups_total",
			Help:      "Routing-decision cache lookups broken out by hit or miss.",
		},
		[]string{"result"},
	)

	searchFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: RoutingComponent,
			Name:      "fanout_shards",
			Help:      "Number of healthy shards a search was dispatched to.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 12, 16, 32},
		},
	)

	searchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RoutingComponent,
			Name:      "search_total",
			Help:      "Coordinated searches broken out by aggregate outcome.",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with reg. Safe to call more than once.
func Register(reg prometheus.Registerer, customCollectors ...prometheus.Collector) {
	registerOnce.Do(func() {
		reg.MustRegister(
			shardQueryCounter,
			shardQueryLatency,
			shardProbeCounter,
			shardHealthy,
			shardRecordCount,
			routingCacheLookups,
			searchFanout,
			searchCounter,
		)
		for _, c := range customCollectors {
			reg.MustRegister(c)
		}
	})
}

// Reset clears every collector. Intended for tests.
func Reset() {
	shardQueryCounter.Reset()
	shardQueryLatency.Reset()
	shardProbeCounter.Reset()
	shardHealthy.Reset()
	shardRecordCount.Reset()
	routingCacheLookups.Reset()
	searchCounter.Reset()
}

// RecordShardQuery records one completed shard query.
func RecordShardQuery(shardID string, latency time.Duration, success bool) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}
	shardQueryCounter.WithLabelValues(shardID, outcome).Inc()
	shardQueryLatency.WithLabelValues(shardID).Observe(latency.Seconds())
}

// RecordProbe records the result of a health probe.
func RecordProbe(shardID string, healthy bool, recordCount int64) {
	if healthy {
		shardProbeCounter.WithLabelValues(shardID, OutcomeSuccess).Inc()
		shardHealthy.WithLabelValues(shardID).Set(1)
		shardRecordCount.WithLabelValues(shardID).Set(float64(recordCount))
		return
	}
	shardProbeCounter.WithLabelValues(shardID, OutcomeError).Inc()
	shardHealthy.WithLabelValues(shardID).Set(0)
}

// ForgetShard drops the per-shard series of a shard no longer in the registry.
func ForgetShard(shardID string) {
	shardHealthy.DeleteLabelValues(shardID)
	shardRecordCount.DeleteLabelValues(shardID)
}

// RecordRoutingCacheLookup counts a routing-decision cache hit or miss.
func RecordRoutingCacheLookup(hit bool) {
	if hit {
		routingCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	routingCacheLookups.WithLabelValues("miss").Inc()
}

// RecordSearch records the fan-out width and aggregate outcome of a search.
func RecordSearch(fanout int, outcome string) {
	searchFanout.Observe(float64(fanout))
	searchCounter.WithLabelValues(outcome).Inc()
}
