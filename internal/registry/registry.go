// Package registry holds the shard catalog and resolves records to shard ids.
//
// The registry is built once from configuration and never mutated afterwards,
// so every method is safe for concurrent use without locking. Lookups that
// return slices hand out copies.
//
// Resolution policies:
//
//	ResolveByLocation: state → region → shard, else country → shard
//	                   (shard_international when unmapped), else the default shard
//	ResolveByHash:     hash(key) mod shard count → "shard_<index+1>"
package registry

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/talentshard/internal/config"
	"github.com/zzenonn/talentshard/internal/domain"
	apperrors "github.com/zzenonn/talentshard/internal/errors"
)

// DisabledShardID is returned by every resolution when sharding is turned off.
const DisabledShardID = "default"

// Registry is the immutable shard catalog.
type Registry struct {
	enabled              bool
	strategy             domain.Strategy
	strategyName         string
	shardCount           int
	hash                 HashAlgorithm
	defaultShardID       string
	internationalShardID string

	shards []domain.ShardDefinition // ordered by priority, then id
	byID   map[string]int
	active []string

	stateToRegion  map[string]string
	countryToShard map[string]string
	regionToShard  map[string]string
}

// New builds a registry from the sharding configuration.
//
// Structural problems (duplicate ids, bad hash algorithm, unknown strategy)
// are returned as errors. Lookup tables that reference shard ids missing from
// the catalog are only logged: those shards are treated as unavailable at
// routing time.
func New(cfg config.ShardingConfig) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hash, err := ParseHashAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	strategy, ok := domain.ParseStrategy(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedStrategy, cfg.Strategy)
	}

	shards := make([]domain.ShardDefinition, len(cfg.Shards))
	copy(shards, cfg.Shards)
	sort.SliceStable(shards, func(i, j int) bool {
		if shards[i].Priority != shards[j].Priority {
			return shards[i].Priority < shards[j].Priority
		}
		return shards[i].ID < shards[j].ID
	})

	r := &Registry{
		enabled:              cfg.Enabled,
		strategy:             strategy,
		strategyName:         strategy.String(),
		shardCount:           cfg.DefaultShardCount,
		hash:                 hash,
		defaultShardID:       orDefault(cfg.DefaultShardID, "shard_default"),
		internationalShardID: orDefault(cfg.InternationalShardID, "shard_international"),
		shards:               shards,
		byID:                 make(map[string]int, len(shards)),
		stateToRegion:        upperKeys(cfg.StateToRegion, true),
		countryToShard:       upperKeys(cfg.CountryToShard, false),
		regionToShard:        upperKeys(cfg.RegionToShard, false),
	}

	for i, s := range shards {
		r.byID[s.ID] = i
		if s.Active {
			r.active = append(r.active, s.ID)
		}
	}

	r.warnDangling("country_to_shard", r.countryToShard)
	r.warnDangling("region_to_shard", r.regionToShard)

	return r, nil
}

// ResolveByLocation maps a location to a shard id.
//
// The state is looked up in the state→region table first, then the region
// argument (records often carry a state name in their region field). A
// matched region resolves through ShardForRegion. Failing that, a non-empty
// country resolves through the country→shard table with the international
// shard as fallback. Everything else lands on the default shard.
func (r *Registry) ResolveByLocation(country, region, state string) string {
	if !r.enabled {
		return DisabledShardID
	}

	for _, key := range []string{state, region} {
		key = normalize(key)
		if key == "" {
			continue
		}
		if mapped, ok := r.stateToRegion[key]; ok {
			if shardID, ok := r.ShardForRegion(mapped); ok {
				return shardID
			}
			return r.defaultShardID
		}
	}

	if c := normalize(country); c != "" {
		if shardID, ok := r.countryToShard[c]; ok {
			return shardID
		}
		return r.internationalShardID
	}

	return r.defaultShardID
}

// ResolveByHash maps a key to "shard_<n>" where n is the 1-based bucket of
// the key's hash modulo the configured shard count.
func (r *Registry) ResolveByHash(key string) string {
	if !r.enabled {
		return DisabledShardID
	}
	index := r.hash.Sum64(key) % uint64(r.shardCount)
	return fmt.Sprintf("shard_%d", index+1)
}

// ShardForRegion resolves a region code to a shard id: the explicit
// region→shard table first, then the first shard (by priority) whose
// geographic scope lists the region.
func (r *Registry) ShardForRegion(region string) (string, bool) {
	region = normalize(region)
	if region == "" {
		return "", false
	}
	if shardID, ok := r.regionToShard[region]; ok {
		return shardID, true
	}
	for _, s := range r.shards {
		if s.CoversRegion(region) {
			return s.ID, true
		}
	}
	return "", false
}

// AllActiveShardIDs returns the ids of all active shards ordered by priority.
func (r *Registry) AllActiveShardIDs() []string {
	ids := make([]string, len(r.active))
	copy(ids, r.active)
	return ids
}

// Get returns the definition for a shard id.
func (r *Registry) Get(shardID string) (domain.ShardDefinition, bool) {
	i, ok := r.byID[shardID]
	if !ok {
		return domain.ShardDefinition{}, false
	}
	return r.shards[i], true
}

// IsActive reports whether the shard exists and is active.
func (r *Registry) IsActive(shardID string) bool {
	def, ok := r.Get(shardID)
	return ok && def.Active
}

// Order returns the position of a shard in priority order, or -1.
func (r *Registry) Order(shardID string) int {
	if i, ok := r.byID[shardID]; ok {
		return i
	}
	return -1
}

// Shards returns every shard definition ordered by priority.
func (r *Registry) Shards() []domain.ShardDefinition {
	out := make([]domain.ShardDefinition, len(r.shards))
	copy(out, r.shards)
	return out
}

// Enabled reports whether sharding is turned on.
func (r *Registry) Enabled() bool {
	return r.enabled
}

// Strategy returns the configured placement strategy.
func (r *Registry) Strategy() domain.Strategy {
	return r.strategy
}

// StrategyName returns the canonical name of the configured strategy.
func (r *Registry) StrategyName() string {
	return r.strategyName
}

// DefaultShardID returns the shard used for writes while sharding is disabled.
func (r *Registry) DefaultShardID() string {
	return r.defaultShardID
}

func (r *Registry) warnDangling(table string, m map[string]string) {
	for key, shardID := range m {
		if _, ok := r.byID[shardID]; !ok {
			log.WithFields(log.Fields{"table": table, "key": key, "shard": shardID}).
				Warn("Lookup table references a shard that is not defined; it will be treated as unavailable")
		}
	}
}

func upperKeys(in map[string]string, upperValues bool) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		v = strings.TrimSpace(v)
		if upperValues {
			v = strings.ToUpper(v)
		}
		out[normalize(k)] = v
	}
	return out
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
