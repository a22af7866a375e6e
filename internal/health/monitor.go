// Package health tracks per-shard health and query performance.
//
// Health records are produced by probes: a lightweight count query against
// the shard store. Each record is replaced whole on every probe, so readers
// never observe a new timestamp paired with a stale error. Records older than
// the staleness window are re-probed synchronously by IsHealthy before being
// trusted, while Start runs an unconditional sweep on a fixed interval.
//
// Per shard the state moves UNKNOWN → HEALTHY | UNHEALTHY and is revisited on
// every probe; there is no hysteresis beyond the staleness window.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/zzenonn/talentshard/internal/config"
	"github.com/zzenonn/talentshard/internal/domain"
	apperrors "github.com/zzenonn/talentshard/internal/errors"
	"github.com/zzenonn/talentshard/internal/metrics"
)

// Prober performs the existence/count check against a shard.
type Prober interface {
	Count(ctx context.Context, shardID string) (int64, error)
}

// Catalog is the view of the shard registry the monitor needs.
type Catalog interface {
	Get(shardID string) (domain.ShardDefinition, bool)
	AllActiveShardIDs() []string
}

// Monitor maintains the health and metrics caches for every shard in the catalog.
// Thread-safe: all methods may be called concurrently.
type Monitor struct {
	catalog Catalog
	prober  Prober
	cfg     config.HealthConfig

	health  sync.Map // shard id -> *domain.ShardHealthRecord
	metrics map[string]domain.ShardMetrics
	mu      sync.Mutex // protects metrics

	probes  singleflight.Group
	limiter *rate.Limiter

	listenersMu sync.RWMutex
	listeners   []func(shardID string, healthy bool)

	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor. Zero-valued fields in cfg take the defaults
// of a fresh configuration: 5m staleness, 2m sweep, 2s probe timeout.
func NewMonitor(catalog Catalog, prober Prober, cfg config.HealthConfig) *Monitor {
	if cfg.Staleness <= 0 {
		cfg.Staleness = 5 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 2 * time.Minute
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.SweepParallelism <= 0 {
		cfg.SweepParallelism = 4
	}
	if cfg.HighLatencyMs <= 0 {
		cfg.HighLatencyMs = 1000
	}
	if cfg.MinSuccessRate <= 0 {
		cfg.MinSuccessRate = 0.95
	}
	if cfg.CapacityRatio <= 0 {
		cfg.CapacityRatio = 0.85
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.ProbeRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ProbeRate), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		catalog: catalog,
		prober:  prober,
		cfg:     cfg,
		metrics: make(map[string]domain.ShardMetrics),
		limiter: limiter,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetClock overrides the time source. Useful for testing staleness.
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// OnHealthChange registers a callback invoked after a probe flips a shard's
// health. The first observation of a shard is not a flip. Callbacks run
// synchronously on the probing goroutine and must not block.
func (m *Monitor) OnHealthChange(callback func(shardID string, healthy bool)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, callback)
}

// IsHealthy returns the cached health of a shard if it is younger than the
// staleness window; otherwise it re-probes before answering. Concurrent
// callers for the same shard share one probe, which runs detached from any
// single caller's cancellation and is bounded by the probe timeout. A caller
// that gives up early gets the last known state.
func (m *Monitor) IsHealthy(ctx context.Context, shardID string) bool {
	rec := m.load(shardID)
	if rec != nil && !m.isStale(rec) {
		return rec.Healthy
	}

	result := m.probes.DoChan(shardID, func() (interface{}, error) {
		return m.Probe(context.WithoutCancel(ctx), shardID), nil
	})
	select {
	case r := <-result:
		return r.Val.(bool)
	case <-ctx.Done():
		return rec != nil && rec.Healthy
	}
}

// Probe checks a shard now and replaces its health record. Failures are
// recorded as unhealthy and never returned as errors; a probe cut short by
// ctx itself leaves the record untouched. Ids unknown to the
// catalog are reported unhealthy without creating a record.
func (m *Monitor) Probe(ctx context.Context, shardID string) bool {
	def, ok := m.catalog.Get(shardID)
	if !ok {
		log.WithField("shard", shardID).Warn("Health check requested for a shard that is not configured")
		return false
	}
	if !def.Active {
		m.store(&domain.ShardHealthRecord{
			ShardID:       shardID,
			Healthy:       false,
			LastCheckedAt: m.now(),
			LastError:     apperrors.ErrShardInactive.Error(),
		})
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	count, err := m.count(pctx, shardID)
	elapsed := time.Since(start)

	if err != nil && ctx.Err() != nil {
		// The caller went away; the shard's state is unknown, not unhealthy.
		log.WithField("shard", shardID).Debugf("Health check abandoned: %v", ctx.Err())
		rec := m.load(shardID)
		return rec != nil && rec.Healthy
	}
	if err != nil {
		log.WithField("shard", shardID).Warnf("Health check failed: %v", err)
		m.store(&domain.ShardHealthRecord{
			ShardID:       shardID,
			Healthy:       false,
			LastCheckedAt: m.now(),
			LastError:     err.Error(),
		})
		return false
	}

	log.WithField("shard", shardID).Debugf("Health check passed: %d records, %dms response", count, elapsed.Milliseconds())
	m.store(&domain.ShardHealthRecord{
		ShardID:        shardID,
		Healthy:        true,
		LastCheckedAt:  m.now(),
		ResponseTimeMs: elapsed.Milliseconds(),
		RecordCount:    count,
	})
	return true
}

// count calls the prober, converting panics into errors.
func (m *Monitor) count(ctx context.Context, shardID string) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", apperrors.ErrShardPanic, r)
		}
	}()
	n, err = m.prober.Count(ctx, shardID)
	if err == nil && n < 0 {
		err = fmt.Errorf("probe returned negative record count %d", n)
	}
	return n, err
}

// RecordPerformance folds one completed shard query into the shard's
// running metrics. Ids unknown to the catalog are ignored.
func (m *Monitor) RecordPerformance(shardID string, latencyMs int64, success bool) {
	if _, ok := m.catalog.Get(shardID); !ok {
		return
	}

	m.mu.Lock()
	current := m.metrics[shardID]
	current.ShardID = shardID
	m.metrics[shardID] = current.Record(latencyMs, success, m.now())
	m.mu.Unlock()

	metrics.RecordShardQuery(shardID, time.Duration(latencyMs)*time.Millisecond, success)
}

// RecordCount returns the record count from the cached health record
// without probing. Unknown shards report zero.
func (m *Monitor) RecordCount(shardID string) int64 {
	if rec := m.load(shardID); rec != nil {
		return rec.RecordCount
	}
	return 0
}

// Health returns a copy of the cached health record.
func (m *Monitor) Health(shardID string) (domain.ShardHealthRecord, bool) {
	rec := m.load(shardID)
	if rec == nil {
		return domain.ShardHealthRecord{}, false
	}
	return *rec, true
}

// Metrics returns a copy of the shard's running metrics.
func (m *Monitor) Metrics(shardID string) (domain.ShardMetrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics, ok := m.metrics[shardID]
	return metrics, ok
}

func (m *Monitor) load(shardID string) *domain.ShardHealthRecord {
	v, ok := m.health.Load(shardID)
	if !ok {
		return nil
	}
	return v.(*domain.ShardHealthRecord)
}

func (m *Monitor) isStale(rec *domain.ShardHealthRecord) bool {
	return m.now().Sub(rec.LastCheckedAt) > m.cfg.Staleness
}

// store replaces the shard's record and notifies listeners when the
// shard's health flips.
func (m *Monitor) store(rec *domain.ShardHealthRecord) {
	prev, loaded := m.health.Swap(rec.ShardID, rec)
	metrics.RecordProbe(rec.ShardID, rec.Healthy, rec.RecordCount)

	if !loaded || prev.(*domain.ShardHealthRecord).Healthy == rec.Healthy {
		return
	}
	log.WithField("shard", rec.ShardID).Infof("Shard health changed to %s", rec.State())

	m.listenersMu.RLock()
	listeners := m.listeners
	m.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(rec.ShardID, rec.Healthy)
	}
}
