package routing

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"

	"github.com/zzenonn/talentshard/internal/domain"
	"github.com/zzenonn/talentshard/internal/metrics"
)

type lexiconEntry struct {
	keyword string
	region  string
}

// newLexicon sorts keywords so hint extraction does not depend on map order.
func newLexicon(m map[string]string) []lexiconEntry {
	entries := make([]lexiconEntry, 0, len(m))
	for k, v := range m {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		entries = append(entries, lexiconEntry{keyword: k, region: strings.ToUpper(strings.TrimSpace(v))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].keyword < entries[j].keyword })
	return entries
}

// normalizeRequest applies the default limit, caps it and clamps the threshold to [0,1].
func (c *Coordinator) normalizeRequest(req domain.SearchRequest) domain.SearchRequest {
	req.Query = strings.TrimSpace(req.Query)
	if req.Limit <= 0 {
		req.Limit = c.cfg.DefaultLimit
	}
	if req.Limit > c.cfg.MaxLimit {
		req.Limit = c.cfg.MaxLimit
	}
	if req.Threshold < 0 {
		req.Threshold = 0
	}
	if req.Threshold > 1 {
		req.Threshold = 1
	}
	return req
}

// fingerprint hashes the normalized query text, limit and threshold.
func fingerprint(req domain.SearchRequest) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strings.Join(strings.Fields(strings.ToLower(req.Query)), " "))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.Itoa(req.Limit))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatFloat(req.Threshold, 'g', -1, 64))
	return d.Sum64()
}

// TargetShards returns the shards a request should reach before health
// filtering. Decisions are cached by fingerprint.
func (c *Coordinator) TargetShards(req domain.SearchRequest) []string {
	key := fingerprint(req)
	if item := c.routes.Get(key); item != nil {
		metrics.RecordRoutingCacheLookup(true)
		return append([]string(nil), item.Value()...)
	}
	metrics.RecordRoutingCacheLookup(false)

	targets := c.hintedShards(req.Query)
	if len(targets) == 0 {
		targets = c.registry.AllActiveShardIDs()
	}

	c.routes.Set(key, targets, ttlcache.DefaultTTL)
	return append([]string(nil), targets...)
}

// hintedShards maps geographic keywords in the query to active shards,
// ordered as in the registry. A hint that names no active shard is ignored.
func (c *Coordinator) hintedShards(query string) []string {
	text := strings.ToLower(query)
	seen := make(map[string]struct{})
	var shards []string

	for _, e := range c.lexicon {
		if !strings.Contains(text, e.keyword) {
			continue
		}
		shardID, ok := c.registry.ShardForRegion(e.region)
		if !ok || !c.registry.IsActive(shardID) {
			continue
		}
		if _, dup := seen[shardID]; dup {
			continue
		}
		seen[shardID] = struct{}{}
		shards = append(shards, shardID)
	}

	sort.SliceStable(shards, func(i, j int) bool {
		return c.registry.Order(shards[i]) < c.registry.Order(shards[j])
	})
	return shards
}

// healthyShards checks targets concurrently and keeps the healthy ones in
// their original order.
func (c *Coordinator) healthyShards(ctx context.Context, targets []string) []string {
	ok := make([]bool, len(targets))

	var g errgroup.Group
	g.SetLimit(c.cfg.MaxParallel)
	for i, id := range targets {
		g.Go(func() error {
			ok[i] = c.health.IsHealthy(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	healthy := make([]string, 0, len(targets))
	for i, id := range targets {
		if ok[i] {
			healthy = append(healthy, id)
		}
	}
	return healthy
}
