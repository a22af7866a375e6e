// Package placement decides which shard owns a profile at write time.
//
// Placement combines the registry's two resolution policies:
//
//   - Geographic: the record's country/region/locality select a shard through
//     the registry's lookup tables.
//   - Hash: the record id is hashed onto "shard_<n>".
//
// Under the default geographic_hash strategy a record is placed geographically
// unless its geographic shard is near capacity, in which case the hash policy
// spreads the overflow. The capacity signal is the record count cached by the
// health monitor; placement never probes.
//
// Example:
//
//	resolver := NewResolver(reg, monitor)
//	shardID := resolver.PlaceForWrite(record)
//	err := store.PutProfile(ctx, shardID, record)
package placement

import (
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/talentshard/internal/domain"
)

// Placer selects the shard a record is written to.
//
// Implementations must be thread-safe and deterministic for a fixed load
// signal: the same record always lands on the same shard.
type Placer interface {
	// PlaceForWrite returns the id of the shard that should own the record.
	PlaceForWrite(record domain.ProfileRecord) string
}

// Registry is the part of the shard registry placement relies on.
type Registry interface {
	Enabled() bool
	Strategy() domain.Strategy
	DefaultShardID() string
	ResolveByLocation(country, region, state string) string
	ResolveByHash(key string) string
}

// LoadSignal reports whether a shard is close to its configured capacity.
type LoadSignal interface {
	Overloaded(shardID string) bool
}

// Resolver implements Placer over a registry and a load signal.
type Resolver struct {
	registry Registry
	load     LoadSignal
}

// NewResolver creates a placement resolver. A nil load signal disables the
// overload fallback.
func NewResolver(registry Registry, load LoadSignal) *Resolver {
	return &Resolver{registry: registry, load: load}
}

// PlaceForWrite picks the shard for a new or updated record.
func (r *Resolver) PlaceForWrite(record domain.ProfileRecord) string {
	if !r.registry.Enabled() {
		return r.registry.DefaultShardID()
	}

	switch r.registry.Strategy() {
	case domain.StrategyHashOnly:
		return r.registry.ResolveByHash(record.ID)
	case domain.StrategyGeographicOnly:
		return r.geographic(record)
	default:
		shardID := r.geographic(record)
		if r.load != nil && r.load.Overloaded(shardID) {
			hashed := r.registry.ResolveByHash(record.ID)
			log.WithField("shard", shardID).Infof("Shard near capacity, placing profile %s on %s", record.ID, hashed)
			return hashed
		}
		return shardID
	}
}

// geographic resolves by location. The locality doubles as the state because
// profile sources store either "San Jose" or "California" there.
func (r *Resolver) geographic(record domain.ProfileRecord) string {
	return r.registry.ResolveByLocation(record.Country, record.Region, record.Locality)
}
