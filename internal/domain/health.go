package domain

import (
	"fmt"
	"time"
)

// HealthState is the probe-derived state of a shard.
type HealthState int

const (
	HealthUnknown HealthState = iota
	HealthHealthy
	HealthUnhealthy
)

func (s HealthState) String() string {
	switch s {
	case HealthHealthy:
		return "healthy"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// ShardHealthRecord is the result of the latest probe of a shard.
// Records are replaced whole on every probe and never mutated in place.
type ShardHealthRecord struct {
	ShardID        string    `json:"shard_id"`
	Healthy        bool      `json:"healthy"`
	LastCheckedAt  time.Time `json:"last_checked_at"`
	LastError      string    `json:"last_error,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	RecordCount    int64     `json:"record_count"`
}

// State returns the health state the record represents.
func (r *ShardHealthRecord) State() HealthState {
	if r == nil {
		return HealthUnknown
	}
	if r.Healthy {
		return HealthHealthy
	}
	return HealthUnhealthy
}

// ShardMetrics is the rolling performance aggregate for a shard.
type ShardMetrics struct {
	ShardID           string    `json:"shard_id"`
	TotalQueries      int64     `json:"total_queries"`
	AvgResponseTimeMs float64   `json:"avg_response_time_ms"`
	ErrorCount        int64     `json:"error_count"`
	LastUpdated       time.Time `json:"last_updated"`
}

// SuccessRate returns (total-errors)/total, or 1 when nothing has been recorded.
func (m ShardMetrics) SuccessRate() float64 {
	if m.TotalQueries <= 0 {
		return 1
	}
	return float64(m.TotalQueries-m.ErrorCount) / float64(m.TotalQueries)
}

// Record returns a copy of m updated with one completed query.
func (m ShardMetrics) Record(latencyMs int64, success bool, at time.Time) ShardMetrics {
	next := m
	next.AvgResponseTimeMs = (m.AvgResponseTimeMs*float64(m.TotalQueries) + float64(latencyMs)) / float64(m.TotalQueries+1)
	next.TotalQueries = m.TotalQueries + 1
	if !success {
		next.ErrorCount = m.ErrorCount + 1
	}
	next.LastUpdated = at
	return next
}

// Recommendation is the load-balancing action suggested for a shard.
type Recommendation int

const (
	RecommendHealthy Recommendation = iota
	RecommendUnavailable
	RecommendHighLatency
	RecommendHighErrorRate
	RecommendApproachingCapacity
)

func (r Recommendation) String() string {
	switch r {
	case RecommendHealthy:
		return "HEALTHY"
	case RecommendUnavailable:
		return "UNAVAILABLE"
	case RecommendHighLatency:
		return "HIGH_LATENCY"
	case RecommendHighErrorRate:
		return "HIGH_ERROR_RATE"
	case RecommendApproachingCapacity:
		return "APPROACHING_CAPACITY"
	default:
		return fmt.Sprintf("RECOMMENDATION(%d)", int(r))
	}
}

// Advice is the operator-facing text for the recommendation.
func (r Recommendation) Advice() string {
	switch r {
	case RecommendHealthy:
		return "Operating normally"
	case RecommendUnavailable:
		return "Redirect traffic to healthy shards"
	case RecommendHighLatency:
		return "Consider adding read replicas or optimizing queries"
	case RecommendHighErrorRate:
		return "Investigate recent errors and consider failover"
	case RecommendApproachingCapacity:
		return "Plan for horizontal scaling"
	default:
		return ""
	}
}

func (r Recommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ShardReport combines the health record and metrics of one shard.
type ShardReport struct {
	Health         *ShardHealthRecord `json:"health,omitempty"`
	Metrics        *ShardMetrics      `json:"metrics,omitempty"`
	SuccessRate    float64            `json:"success_rate"`
	Recommendation Recommendation     `json:"recommendation"`
}

// HealthReport summarises the health of every active shard.
type HealthReport struct {
	TotalShards      int                    `json:"total_shards"`
	HealthyShards    int                    `json:"healthy_shards"`
	HealthPercentage float64                `json:"health_percentage"`
	GeneratedAt      time.Time              `json:"generated_at"`
	Shards           map[string]ShardReport `json:"shards"`
}
