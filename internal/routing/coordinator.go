// Package routing implements the search coordinator: it picks the shards a
// query should reach, fans the query out to the healthy ones in parallel and
// merges the per-shard results into one globally ranked answer.
//
// Failures never escape the coordinator. A shard that errors, panics or times
// out contributes an empty, error-tagged outcome; when every shard fails the
// aggregated result has Success=false and a combined ErrorMessage.
package routing

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/talentshard/internal/config"
	"github.com/zzenonn/talentshard/internal/domain"
	"github.com/zzenonn/talentshard/internal/placement"
)

// Executor runs one query against one shard and returns its ranked candidates.
type Executor interface {
	Search(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error)
}

// Registry is the view of the shard catalog the coordinator needs.
type Registry interface {
	AllActiveShardIDs() []string
	IsActive(shardID string) bool
	Order(shardID string) int
	ShardForRegion(region string) (string, bool)
	Enabled() bool
	StrategyName() string
}

// HealthChecker gates shards by health and receives per-query performance.
type HealthChecker interface {
	IsHealthy(ctx context.Context, shardID string) bool
	RecordPerformance(shardID string, latencyMs int64, success bool)
	OnHealthChange(callback func(shardID string, healthy bool))
}

// Coordinator routes searches across shards and resolves write placement.
type Coordinator struct {
	registry Registry
	health   HealthChecker
	executor Executor
	placer   placement.Placer
	cfg      config.RouterConfig
	lexicon  []lexiconEntry

	routes *ttlcache.Cache[uint64, []string]
}

// NewCoordinator wires a coordinator and starts its route-cache janitor.
// The lexicon maps lower-case keywords found in query text to region codes.
// Call Close to release the janitor.
func NewCoordinator(registry Registry, health HealthChecker, executor Executor, placer placement.Placer, cfg config.RouterConfig, lexicon map[string]string) *Coordinator {
	if cfg.ShardTimeout <= 0 {
		cfg.ShardTimeout = 5 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 16
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}

	opts := []ttlcache.Option[uint64, []string]{
		ttlcache.WithTTL[uint64, []string](cfg.CacheTTL),
		ttlcache.WithDisableTouchOnHit[uint64, []string](),
	}
	if cfg.CacheCapacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uint64, []string](cfg.CacheCapacity))
	}

	c := &Coordinator{
		registry: registry,
		health:   health,
		executor: executor,
		placer:   placer,
		cfg:      cfg,
		lexicon:  newLexicon(lexicon),
		routes:   ttlcache.New(opts...),
	}

	health.OnHealthChange(func(shardID string, healthy bool) {
		log.WithField("shard", shardID).Debugf("Invalidating cached routes after health change (healthy=%t)", healthy)
		c.InvalidateRoutes()
	})

	go c.routes.Start()
	return c
}

// CoordinateSearch is Route for a prepared request.
func (c *Coordinator) CoordinateSearch(ctx context.Context, req domain.SearchRequest) domain.AggregatedSearchResult {
	return c.Route(ctx, req.Query, req.Limit, req.Threshold)
}

// DetermineProfileShard returns the shard a profile should be written to.
func (c *Coordinator) DetermineProfileShard(record domain.ProfileRecord) string {
	return c.placer.PlaceForWrite(record)
}

// CoordinatorHealth summarises the routing layer. Shards with stale health
// records are re-probed.
func (c *Coordinator) CoordinatorHealth(ctx context.Context) domain.CoordinatorHealth {
	active := c.registry.AllActiveShardIDs()
	healthy := c.healthyShards(ctx, active)

	return domain.CoordinatorHealth{
		ShardsConfigured: len(active),
		ShardsHealthy:    len(healthy),
		CacheSize:        c.routes.Len(),
		ShardingEnabled:  c.registry.Enabled(),
		Strategy:         c.registry.StrategyName(),
	}
}

// InvalidateRoutes drops every cached routing decision.
func (c *Coordinator) InvalidateRoutes() {
	c.routes.DeleteAll()
}

// Close stops the route-cache janitor.
func (c *Coordinator) Close() {
	c.routes.Stop()
}
