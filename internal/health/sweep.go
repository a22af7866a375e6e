package health

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zzenonn/talentshard/internal/metrics"
)

// Start runs a full sweep immediately and then every sweep interval in a
// background goroutine until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	log.Infof("Health monitor started with interval %v", m.cfg.SweepInterval)

	m.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			log.Debug("Health monitor stopping due to context cancellation")
			return
		case <-m.ctx.Done():
			log.Debug("Health monitor stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels a running Start loop and waits for it to return.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
	log.Debug("Health monitor stopped")
}

// Sweep probes every active shard regardless of staleness, drops records of
// shards no longer in the catalog and logs a healthy/unhealthy summary.
func (m *Monitor) Sweep(ctx context.Context) {
	ids := m.catalog.AllActiveShardIDs()
	log.Debugf("Starting scheduled health check for %d shards", len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.SweepParallelism)
	for _, id := range ids {
		g.Go(func() error {
			if err := m.limiter.Wait(gctx); err != nil {
				return err
			}
			m.Probe(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnf("Scheduled health check interrupted: %v", err)
	}

	m.prune()
	m.logSummary()
}

// prune removes health and metrics entries for ids missing from the catalog.
func (m *Monitor) prune() {
	m.health.Range(func(k, _ any) bool {
		id := k.(string)
		if _, ok := m.catalog.Get(id); !ok {
			m.health.Delete(id)
			metrics.ForgetShard(id)
			log.WithField("shard", id).Info("Removed shard from health monitoring")
		}
		return true
	})

	m.mu.Lock()
	for id := range m.metrics {
		if _, ok := m.catalog.Get(id); !ok {
			delete(m.metrics, id)
		}
	}
	m.mu.Unlock()
}

func (m *Monitor) logSummary() {
	var healthy, total int
	var unhealthy []string
	m.health.Range(func(k, v any) bool {
		total++
		if rec := m.load(k.(string)); rec != nil && rec.Healthy {
			healthy++
		} else {
			unhealthy = append(unhealthy, k.(string))
		}
		return true
	})

	if healthy == total {
		log.Debugf("All %d shards are healthy", total)
		return
	}

	log.Warnf("Shard health: %d/%d healthy", healthy, total)
	for _, id := range unhealthy {
		if rec := m.load(id); rec != nil {
			log.WithField("shard", id).Warnf("Unhealthy shard: %s", rec.LastError)
		}
	}
}
