package config

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zzenonn/talentshard/internal/domain"
	apperrors "github.com/zzenonn/talentshard/internal/errors"
)

// ShardingConfig holds the static shard catalog and the geographic lookup tables.
type ShardingConfig struct {
	Enabled              bool
	Strategy             string
	DefaultShardCount    int
	HashAlgorithm        string
	MaxRecordsPerShard   int64
	DefaultShardID       string
	InternationalShardID string
	StateToRegion        map[string]string
	CountryToShard       map[string]string
	RegionToShard        map[string]string
	GeoLexicon           map[string]string
	Shards               []domain.ShardDefinition
}

// HealthConfig tunes the shard health monitor
type HealthConfig struct {
	Staleness        time.Duration
	SweepInterval    time.Duration
	ProbeTimeout     time.Duration
	ProbeRate        float64
	SweepParallelism int
	HighLatencyMs    float64
	MinSuccessRate   float64
	CapacityRatio    float64
}

// RouterConfig tunes the search coordinator
type RouterConfig struct {
	ShardTimeout  time.Duration
	MaxParallel   int
	CacheTTL      time.Duration
	CacheCapacity uint64
	DefaultLimit  int
	MaxLimit      int
}

// CatalogConfig points at an optional remote shard catalog
type CatalogConfig struct {
	Source string
	Quiet  bool
}

// DynamoDBConfig configures the shard store
type DynamoDBConfig struct {
	Endpoint    string
	TablePrefix string
}

// Config holds the application configuration
type Config struct {
	LogLevel    string
	MetricsAddr string
	Sharding    ShardingConfig
	Health      HealthConfig
	Router      RouterConfig
	Catalog     CatalogConfig
	DynamoDB    DynamoDBConfig
}

// shardEntry mirrors domain.ShardDefinition with optional fields so that
// omitted values pick up defaults instead of zero values.
type shardEntry struct {
	ID          string                 `mapstructure:"shard_id"`
	Name        string                 `mapstructure:"name"`
	Description string                 `mapstructure:"description"`
	Active      *bool                  `mapstructure:"active"`
	Priority    *int                   `mapstructure:"priority"`
	Table       string                 `mapstructure:"table"`
	MaxRecords  int64                  `mapstructure:"max_records"`
	MaxStorage  float64                `mapstructure:"max_storage_gb"`
	Geographic  domain.GeographicScope `mapstructure:"geographic"`
	Hash        domain.HashScope       `mapstructure:"hash"`
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	if err := setupViper(configPath, rootCmd); err != nil {
		return nil, err
	}
	return fromViper(viper.GetViper())
}

// ParseCatalog reads a YAML catalog document and returns its sharding section.
// Keys absent from the document take the usual defaults.
func ParseCatalog(data []byte) (ShardingConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ShardingConfig{}, apperrors.ErrEmptyCatalog
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return ShardingConfig{}, fmt.Errorf("error reading catalog: %w", err)
	}

	return parseSharding(v)
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, rootCmd *cobra.Command) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	setDefaults(viper.GetViper())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if rootCmd != nil {
		if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":9090")

	v.SetDefault("sharding.enabled", true)
	v.SetDefault("sharding.strategy", "geographic_hash")
	v.SetDefault("sharding.default_shard_count", 5)
	v.SetDefault("sharding.hash_algorithm", "fnv1a")
	v.SetDefault("sharding.max_records_per_shard", 15_000_000)
	v.SetDefault("sharding.default_shard_id", "shard_default")
	v.SetDefault("sharding.international_shard_id", "shard_international")
	v.SetDefault("sharding.geo_lexicon", map[string]interface{}{
		"new york":      "USA_EAST",
		"boston":        "USA_EAST",
		"california":    "USA_WEST",
		"san francisco": "USA_WEST",
		"los angeles":   "USA_WEST",
		"seattle":       "USA_WEST",
		"texas":         "USA_CENTRAL",
		"chicago":       "USA_CENTRAL",
		"florida":       "USA_SOUTH",
		"atlanta":       "USA_SOUTH",
	})
	v.SetDefault("sharding.region_to_shard", map[string]interface{}{
		"USA_EAST":    "shard_usa_east",
		"USA_WEST":    "shard_usa_west",
		"USA_CENTRAL": "shard_usa_central",
		"USA_SOUTH":   "shard_usa_south",
	})

	v.SetDefault("health.staleness", 5*time.Minute)
	v.SetDefault("health.sweep_interval", 2*time.Minute)
	v.SetDefault("health.probe_timeout", 2*time.Second)
	v.SetDefault("health.probe_rate", 0)
	v.SetDefault("health.sweep_parallelism", 4)
	v.SetDefault("health.high_latency_ms", 1000)
	v.SetDefault("health.min_success_rate", 0.95)
	v.SetDefault("health.capacity_ratio", 0.85)

	v.SetDefault("router.shard_timeout", 5*time.Second)
	v.SetDefault("router.max_parallel", 16)
	v.SetDefault("router.cache_ttl", 10*time.Minute)
	v.SetDefault("router.cache_capacity", 10_000)
	v.SetDefault("router.default_limit", 10)
	v.SetDefault("router.max_limit", 100)

	v.SetDefault("catalog.source", "")
	v.SetDefault("catalog.quiet", true)

	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.table_prefix", "profiles_")
}

func fromViper(v *viper.Viper) (*Config, error) {
	sharding, err := parseSharding(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:    v.GetString("log_level"),
		MetricsAddr: v.GetString("metrics_addr"),
		Sharding:    sharding,
		Health: HealthConfig{
			Staleness:        v.GetDuration("health.staleness"),
			SweepInterval:    v.GetDuration("health.sweep_interval"),
			ProbeTimeout:     v.GetDuration("health.probe_timeout"),
			ProbeRate:        v.GetFloat64("health.probe_rate"),
			SweepParallelism: v.GetInt("health.sweep_parallelism"),
			HighLatencyMs:    v.GetFloat64("health.high_latency_ms"),
			MinSuccessRate:   v.GetFloat64("health.min_success_rate"),
			CapacityRatio:    v.GetFloat64("health.capacity_ratio"),
		},
		Router: RouterConfig{
			ShardTimeout:  v.GetDuration("router.shard_timeout"),
			MaxParallel:   v.GetInt("router.max_parallel"),
			CacheTTL:      v.GetDuration("router.cache_ttl"),
			CacheCapacity: v.GetUint64("router.cache_capacity"),
			DefaultLimit:  v.GetInt("router.default_limit"),
			MaxLimit:      v.GetInt("router.max_limit"),
		},
		Catalog: CatalogConfig{
			Source: v.GetString("catalog.source"),
			Quiet:  v.GetBool("catalog.quiet"),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:    v.GetString("dynamodb.endpoint"),
			TablePrefix: v.GetString("dynamodb.table_prefix"),
		},
	}

	return cfg, nil
}

// parseSharding reads the sharding section and applies per-shard defaults
func parseSharding(v *viper.Viper) (ShardingConfig, error) {
	var entries []shardEntry
	if err := v.UnmarshalKey("sharding.shards", &entries); err != nil {
		return ShardingConfig{}, fmt.Errorf("failed to parse shard definitions: %w", err)
	}

	sc := ShardingConfig{
		Enabled:              v.GetBool("sharding.enabled"),
		Strategy:             v.GetString("sharding.strategy"),
		DefaultShardCount:    v.GetInt("sharding.default_shard_count"),
		HashAlgorithm:        v.GetString("sharding.hash_algorithm"),
		MaxRecordsPerShard:   v.GetInt64("sharding.max_records_per_shard"),
		DefaultShardID:       v.GetString("sharding.default_shard_id"),
		InternationalShardID: v.GetString("sharding.international_shard_id"),
		StateToRegion:        v.GetStringMapString("sharding.state_to_region"),
		CountryToShard:       v.GetStringMapString("sharding.country_to_shard"),
		RegionToShard:        v.GetStringMapString("sharding.region_to_shard"),
		GeoLexicon:           v.GetStringMapString("sharding.geo_lexicon"),
	}

	tablePrefix := v.GetString("dynamodb.table_prefix")
	for _, e := range entries {
		def := domain.ShardDefinition{
			ID:          strings.TrimSpace(e.ID),
			Name:        e.Name,
			Description: e.Description,
			Active:      true,
			Priority:    1,
			Table:       e.Table,
			Geographic:  e.Geographic,
			Hash:        e.Hash,
			Capacity: domain.Capacity{
				MaxRecords:   e.MaxRecords,
				MaxStorageGB: e.MaxStorage,
			},
		}
		if e.Active != nil {
			def.Active = *e.Active
		}
		if e.Priority != nil {
			def.Priority = *e.Priority
		}
		if def.Table == "" {
			def.Table = tablePrefix + def.ID
		}
		if def.Capacity.MaxRecords == 0 {
			def.Capacity.MaxRecords = sc.MaxRecordsPerShard
		}
		sc.Shards = append(sc.Shards, def)
	}

	if err := sc.Validate(); err != nil {
		return ShardingConfig{}, err
	}
	return sc, nil
}

// Validate checks the structural integrity of the shard catalog.
func (sc ShardingConfig) Validate() error {
	if sc.DefaultShardCount <= 0 {
		return fmt.Errorf("%w: default_shard_count must be positive, got %d", apperrors.ErrInvalidConfig, sc.DefaultShardCount)
	}
	if _, ok := domain.ParseStrategy(sc.Strategy); !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedStrategy, sc.Strategy)
	}

	seen := make(map[string]struct{}, len(sc.Shards))
	for i, s := range sc.Shards {
		if s.ID == "" {
			return fmt.Errorf("%w: shard at index %d has no shard_id", apperrors.ErrInvalidConfig, i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate shard_id %q", apperrors.ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// SetConfigValue sets a configuration value (used for CLI flags)
func SetConfigValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadAWSConfig loads AWS SDK configuration
func LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return cfg, nil
}

// NewGCSClient creates a Google Cloud Storage client
func NewGCSClient(ctx context.Context) (*storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create GCS client: %w", err)
	}
	return client, nil
}
