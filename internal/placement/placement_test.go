package placement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/talentshard/internal/config"
	"github.com/zzenonn/talentshard/internal/domain"
	"github.com/zzenonn/talentshard/internal/health"
	"github.com/zzenonn/talentshard/internal/registry"
)

// MockLoadSignal is a mock implementation of LoadSignal
type MockLoadSignal struct {
	OverloadedFn func(shardID string) bool
}

func (m *MockLoadSignal) Overloaded(shardID string) bool {
	return m.OverloadedFn(shardID)
}

// countProber reports a fixed record count per shard.
type countProber map[string]int64

func (p countProber) Count(ctx context.Context, shardID string) (int64, error) {
	return p[shardID], nil
}

func testConfig(strategy string) config.ShardingConfig {
	return config.ShardingConfig{
		Enabled:              true,
		Strategy:             strategy,
		DefaultShardCount:    5,
		HashAlgorithm:        "fnv1a",
		DefaultShardID:       "shard_default",
		InternationalShardID: "shard_international",
		StateToRegion:        map[string]string{"CALIFORNIA": "USA_WEST", "TX": "USA_CENTRAL"},
		CountryToShard:       map[string]string{"US": "shard_usa_east"},
		Shards: []domain.ShardDefinition{
			{ID: "shard_usa_west", Active: true, Priority: 1, Capacity: domain.Capacity{MaxRecords: 1000},
				Geographic: domain.GeographicScope{Regions: []string{"USA_WEST"}}},
			{ID: "shard_usa_central", Active: true, Priority: 1, Capacity: domain.Capacity{MaxRecords: 1000},
				Geographic: domain.GeographicScope{Regions: []string{"USA_CENTRAL"}}},
			{ID: "shard_usa_east", Active: true, Priority: 1, Capacity: domain.Capacity{MaxRecords: 1000}},
		},
	}
}

func newRegistry(t *testing.T, cfg config.ShardingConfig) *registry.Registry {
	t.Helper()
	reg, err := registry.New(cfg)
	require.NoError(t, err)
	return reg
}

func TestResolver_PlaceForWriteOverloadFallback(t *testing.T) {
	reg := newRegistry(t, testConfig("geographic_hash"))
	record := domain.ProfileRecord{ID: "profile-42", Locality: "California", Country: "US"}

	tests := []struct {
		name  string
		count int64
		want  string
	}{
		{name: "half full stays geographic", count: 500, want: "shard_usa_west"},
		{name: "at threshold stays geographic", count: 850, want: "shard_usa_west"},
		{name: "over threshold uses hash", count: 851, want: reg.ResolveByHash("profile-42")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := health.NewMonitor(reg, countProber{"shard_usa_west": tt.count}, config.HealthConfig{})
			monitor.Probe(context.Background(), "shard_usa_west")

			resolver := NewResolver(reg, monitor)
			assert.Equal(t, tt.want, resolver.PlaceForWrite(record))
		})
	}
}

func TestResolver_PlaceForWriteStrategies(t *testing.T) {
	record := domain.ProfileRecord{ID: "profile-7", Region: "TX", Country: "US"}
	alwaysOverloaded := &MockLoadSignal{OverloadedFn: func(string) bool { return true }}
	neverOverloaded := &MockLoadSignal{OverloadedFn: func(string) bool { return false }}

	tests := []struct {
		name     string
		strategy string
		load     LoadSignal
		want     func(reg *registry.Registry) string
	}{
		{
			name:     "geographic_hash without load",
			strategy: "geographic_hash",
			load:     neverOverloaded,
			want:     func(*registry.Registry) string { return "shard_usa_central" },
		},
		{
			name:     "geographic_hash with nil load signal",
			strategy: "geographic_hash",
			want:     func(*registry.Registry) string { return "shard_usa_central" },
		},
		{
			name:     "geographic_only ignores load",
			strategy: "geographic_only",
			load:     alwaysOverloaded,
			want:     func(*registry.Registry) string { return "shard_usa_central" },
		},
		{
			name:     "hash_only always hashes",
			strategy: "hash_only",
			load:     neverOverloaded,
			want:     func(reg *registry.Registry) string { return reg.ResolveByHash("profile-7") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry(t, testConfig(tt.strategy))
			resolver := NewResolver(reg, tt.load)
			assert.Equal(t, tt.want(reg), resolver.PlaceForWrite(record))
		})
	}
}

func TestResolver_PlaceForWriteCountryAndDefault(t *testing.T) {
	reg := newRegistry(t, testConfig("geographic_hash"))
	resolver := NewResolver(reg, nil)

	assert.Equal(t, "shard_usa_east", resolver.PlaceForWrite(domain.ProfileRecord{ID: "a", Country: "us"}))
	assert.Equal(t, "shard_international", resolver.PlaceForWrite(domain.ProfileRecord{ID: "b", Country: "DE"}))
	assert.Equal(t, "shard_default", resolver.PlaceForWrite(domain.ProfileRecord{ID: "c"}))
}

func TestResolver_PlaceForWriteShardingDisabled(t *testing.T) {
	cfg := testConfig("geographic_hash")
	cfg.Enabled = false
	reg := newRegistry(t, cfg)

	resolver := NewResolver(reg, &MockLoadSignal{OverloadedFn: func(string) bool {
		t.Fatal("load signal must not be consulted when sharding is disabled")
		return false
	}})
	assert.Equal(t, "shard_default", resolver.PlaceForWrite(domain.ProfileRecord{ID: "x", Country: "US"}))
}
