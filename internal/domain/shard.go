package domain

// GeographicScope lists the region, state, country and metro codes a shard owns.
type GeographicScope struct {
	Regions   []string `json:"regions" mapstructure:"regions"`
	States    []string `json:"states" mapstructure:"states"`
	Countries []string `json:"countries" mapstructure:"countries"`
	Metros    []string `json:"metros" mapstructure:"metros"`
}

// HashScope describes how a shard partitions records by hash.
type HashScope struct {
	Algorithm   string `json:"algorithm" mapstructure:"algorithm"`
	BucketCount int    `json:"bucket_count" mapstructure:"bucket_count"`
	HashField   string `json:"hash_field" mapstructure:"hash_field"`
	HashRanges  []int  `json:"hash_ranges" mapstructure:"hash_ranges"`
}

// Capacity holds the configured limits of a shard. Zero means unbounded.
type Capacity struct {
	MaxRecords   int64   `json:"max_records" mapstructure:"max_records"`
	MaxStorageGB float64 `json:"max_storage_gb" mapstructure:"max_storage_gb"`
}

// ShardDefinition is the immutable description of one shard, loaded once at startup.
type ShardDefinition struct {
	ID          string          `json:"shard_id" mapstructure:"shard_id"`
	Name        string          `json:"name" mapstructure:"name"`
	Description string          `json:"description" mapstructure:"description"`
	Active      bool            `json:"active" mapstructure:"active"`
	Priority    int             `json:"priority" mapstructure:"priority"` // lower = preferred for reads
	Table       string          `json:"table" mapstructure:"table"`
	Geographic  GeographicScope `json:"geographic" mapstructure:"geographic"`
	Hash        HashScope       `json:"hash" mapstructure:"hash"`
	Capacity    Capacity        `json:"capacity" mapstructure:",squash"`
}

// CoversRegion reports whether the region code is part of the shard's geographic scope.
// Comparison is case-insensitive.
func (d ShardDefinition) CoversRegion(region string) bool {
	for _, r := range d.Geographic.Regions {
		if equalFold(r, region) {
			return true
		}
	}
	return false
}
