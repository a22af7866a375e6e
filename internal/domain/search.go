package domain

// SearchRequest is a query routed across shards.
type SearchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

// ProfileSummary is a ranked candidate returned by a shard.
type ProfileSummary struct {
	ID              string            `json:"id"`
	FullName        string            `json:"full_name,omitempty"`
	Headline        string            `json:"headline,omitempty"`
	Location        string            `json:"location,omitempty"`
	Industry        string            `json:"industry,omitempty"`
	CompanyName     string            `json:"company_name,omitempty"`
	JobTitle        string            `json:"job_title,omitempty"`
	SimilarityScore float64           `json:"similarity_score"`
	MatchingSkills  []string          `json:"matching_skills,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	ShardID         string            `json:"shard_id"`
}

// ShardSearchResult is the outcome of one shard query.
type ShardSearchResult struct {
	ShardID         string           `json:"shard_id"`
	Profiles        []ProfileSummary `json:"profiles"`
	TotalFound      int              `json:"total_found"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	Success         bool             `json:"success"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

// ShardOutcome is the per-shard metadata carried by an aggregated result.
type ShardOutcome struct {
	ShardID         string `json:"shard_id"`
	Found           int    `json:"found"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Success         bool   `json:"success"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// AggregatedSearchResult is the globally ranked merge of per-shard results.
// Callers must inspect Success and ErrorMessage; degraded searches are not errors.
type AggregatedSearchResult struct {
	Query           string           `json:"query"`
	Threshold       float64          `json:"threshold"`
	Profiles        []ProfileSummary `json:"profiles"`
	TotalFound      int              `json:"total_found"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	ShardsQueried   int              `json:"shards_queried"`
	Shards          []ShardOutcome   `json:"shards"`
	Success         bool             `json:"success"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

// CoordinatorHealth is the summary exposed by the coordinator API.
type CoordinatorHealth struct {
	ShardsConfigured int    `json:"shards_configured"`
	ShardsHealthy    int    `json:"shards_healthy"`
	CacheSize        int    `json:"cache_size"`
	ShardingEnabled  bool   `json:"sharding_enabled"`
	Strategy         string `json:"strategy"`
}
