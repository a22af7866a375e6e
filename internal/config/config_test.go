package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/talentshard/internal/domain"
	apperrors "github.com/zzenonn/talentshard/internal/errors"
)

func TestParseCatalog_Defaults(t *testing.T) {
	sc, err := ParseCatalog([]byte(`
sharding:
  shards:
    - shard_id: shard_usa_west
      geographic:
        regions: [USA_WEST]
        states: [CA, WA]
    - shard_id: shard_archive
      active: false
      priority: 0
      table: legacy_profiles
      max_records: 100
`))
	require.NoError(t, err)

	assert.True(t, sc.Enabled)
	assert.Equal(t, "geographic_hash", sc.Strategy)
	assert.Equal(t, 5, sc.DefaultShardCount)
	assert.Equal(t, "fnv1a", sc.HashAlgorithm)
	assert.Equal(t, "shard_default", sc.DefaultShardID)
	assert.Equal(t, "shard_international", sc.InternationalShardID)
	assert.Equal(t, "USA_WEST", sc.GeoLexicon["san francisco"])
	assert.Equal(t, "shard_usa_east", sc.RegionToShard["usa_east"])

	require.Len(t, sc.Shards, 2)
	west := sc.Shards[0]
	assert.Equal(t, domain.ShardDefinition{
		ID:         "shard_usa_west",
		Active:     true,
		Priority:   1,
		Table:      "profiles_shard_usa_west",
		Geographic: domain.GeographicScope{Regions: []string{"USA_WEST"}, States: []string{"CA", "WA"}},
		Capacity:   domain.Capacity{MaxRecords: 15_000_000},
	}, west)

	archive := sc.Shards[1]
	assert.False(t, archive.Active)
	assert.Equal(t, 0, archive.Priority)
	assert.Equal(t, "legacy_profiles", archive.Table)
	assert.Equal(t, int64(100), archive.Capacity.MaxRecords)
}

func TestParseCatalog_Errors(t *testing.T) {
	_, err := ParseCatalog([]byte("   \n"))
	assert.ErrorIs(t, err, apperrors.ErrEmptyCatalog)

	_, err = ParseCatalog([]byte("sharding:\n  strategy: random\n"))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedStrategy)

	_, err = ParseCatalog([]byte("sharding:\n  shards:\n    - shard_id: a\n    - shard_id: a\n"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	_, err = ParseCatalog([]byte("sharding:\n  shards:\n    - name: nameless\n"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	_, err = ParseCatalog([]byte("sharding: [unterminated"))
	assert.Error(t, err)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
health:
  staleness: 1m
router:
  max_limit: 40
dynamodb:
  table_prefix: test_
sharding:
  hash_algorithm: xxhash
  shards:
    - shard_id: shard_1
`), 0o600))
	t.Setenv("ROUTER_SHARD_TIMEOUT", "750ms")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, time.Minute, cfg.Health.Staleness)
	assert.Equal(t, 2*time.Minute, cfg.Health.SweepInterval)
	assert.Equal(t, 0.85, cfg.Health.CapacityRatio)
	assert.Equal(t, 40, cfg.Router.MaxLimit)
	assert.Equal(t, 10, cfg.Router.DefaultLimit)
	assert.Equal(t, 750*time.Millisecond, cfg.Router.ShardTimeout)
	assert.Equal(t, uint64(10_000), cfg.Router.CacheCapacity)
	assert.Equal(t, "xxhash", cfg.Sharding.HashAlgorithm)
	require.Len(t, cfg.Sharding.Shards, 1)
	assert.Equal(t, "test_shard_1", cfg.Sharding.Shards[0].Table)
}
