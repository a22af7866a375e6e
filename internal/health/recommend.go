package health

import (
	"github.com/zzenonn/talentshard/internal/domain"
)

// RecommendedAction evaluates, in order, the conditions below from the cached
// state only (no probe). The first match wins:
//
//	UNAVAILABLE           no health record, or last probe unhealthy
//	HIGH_LATENCY          running average above the latency threshold
//	HIGH_ERROR_RATE       success rate below the minimum
//	APPROACHING_CAPACITY  record count above capacity ratio × max records
//	HEALTHY               otherwise
func (m *Monitor) RecommendedAction(shardID string) domain.Recommendation {
	rec := m.load(shardID)
	if rec == nil || !rec.Healthy {
		return domain.RecommendUnavailable
	}

	stats, _ := m.Metrics(shardID)
	switch {
	case stats.AvgResponseTimeMs > m.cfg.HighLatencyMs:
		return domain.RecommendHighLatency
	case stats.SuccessRate() < m.cfg.MinSuccessRate:
		return domain.RecommendHighErrorRate
	case m.nearCapacity(shardID, rec.RecordCount):
		return domain.RecommendApproachingCapacity
	default:
		return domain.RecommendHealthy
	}
}

// Recommendations returns the recommended action for every active shard.
func (m *Monitor) Recommendations() map[string]domain.Recommendation {
	out := make(map[string]domain.Recommendation)
	for _, id := range m.catalog.AllActiveShardIDs() {
		out[id] = m.RecommendedAction(id)
	}
	return out
}

// Overloaded reports whether the cached record count of a shard exceeds the
// capacity ratio of its configured maximum.
func (m *Monitor) Overloaded(shardID string) bool {
	return m.nearCapacity(shardID, m.RecordCount(shardID))
}

func (m *Monitor) nearCapacity(shardID string, count int64) bool {
	def, ok := m.catalog.Get(shardID)
	if !ok || def.Capacity.MaxRecords <= 0 {
		return false
	}
	return float64(count) > float64(def.Capacity.MaxRecords)*m.cfg.CapacityRatio
}

// Report builds a health report over all active shards from cached state.
func (m *Monitor) Report() domain.HealthReport {
	ids := m.catalog.AllActiveShardIDs()
	report := domain.HealthReport{
		TotalShards: len(ids),
		GeneratedAt: m.now(),
		Shards:      make(map[string]domain.ShardReport, len(ids)),
	}

	for _, id := range ids {
		sr := domain.ShardReport{
			SuccessRate:    1,
			Recommendation: m.RecommendedAction(id),
		}
		if rec, ok := m.Health(id); ok {
			sr.Health = &rec
			if rec.Healthy {
				report.HealthyShards++
			}
		}
		if stats, ok := m.Metrics(id); ok {
			sr.Metrics = &stats
			sr.SuccessRate = stats.SuccessRate()
		}
		report.Shards[id] = sr
	}

	if report.TotalShards > 0 {
		report.HealthPercentage = float64(report.HealthyShards) * 100 / float64(report.TotalShards)
	}
	return report
}
