package routing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/talentshard/internal/config"
	"github.com/zzenonn/talentshard/internal/domain"
	"github.com/zzenonn/talentshard/internal/health"
	"github.com/zzenonn/talentshard/internal/registry"
)

// MockExecutor is a mock implementation of Executor
type MockExecutor struct {
	mu       sync.Mutex
	queried  []string
	SearchFn func(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error)
}

func (m *MockExecutor) Search(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error) {
	m.mu.Lock()
	m.queried = append(m.queried, shardID)
	m.mu.Unlock()
	return m.SearchFn(ctx, shardID, query, threshold, limit)
}

func (m *MockExecutor) Queried() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.queried...)
	sort.Strings(out)
	return out
}

// MockHealth is a mock implementation of HealthChecker
type MockHealth struct {
	mu          sync.Mutex
	unhealthy   map[string]bool
	performance map[string][]bool
	listeners   []func(string, bool)
}

func newMockHealth(unhealthy ...string) *MockHealth {
	h := &MockHealth{unhealthy: map[string]bool{}, performance: map[string][]bool{}}
	for _, id := range unhealthy {
		h.unhealthy[id] = true
	}
	return h
}

func (m *MockHealth) IsHealthy(ctx context.Context, shardID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unhealthy[shardID]
}

func (m *MockHealth) RecordPerformance(shardID string, latencyMs int64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.performance[shardID] = append(m.performance[shardID], success)
}

func (m *MockHealth) OnHealthChange(callback func(string, bool)) {
	m.listeners = append(m.listeners, callback)
}

func (m *MockHealth) Flip(shardID string, healthy bool) {
	m.mu.Lock()
	m.unhealthy[shardID] = !healthy
	m.mu.Unlock()
	for _, fn := range m.listeners {
		fn(shardID, healthy)
	}
}

// MockPlacer is a mock implementation of placement.Placer
type MockPlacer struct {
	PlaceForWriteFn func(record domain.ProfileRecord) string
}

func (m *MockPlacer) PlaceForWrite(record domain.ProfileRecord) string {
	return m.PlaceForWriteFn(record)
}

var testLexicon = map[string]string{
	"california": "USA_WEST",
	"seattle":    "USA_WEST",
	"texas":      "USA_CENTRAL",
	"new york":   "USA_EAST",
	"boston":     "USA_EAST",
	"atlantis":   "USA_LOST",
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(config.ShardingConfig{
		Enabled:           true,
		Strategy:          "geographic_hash",
		DefaultShardCount: 4,
		HashAlgorithm:     "fnv1a",
		Shards: []domain.ShardDefinition{
			{ID: "shard_usa_east", Active: true, Priority: 1, Geographic: domain.GeographicScope{Regions: []string{"USA_EAST"}}},
			{ID: "shard_usa_west", Active: true, Priority: 1, Geographic: domain.GeographicScope{Regions: []string{"USA_WEST"}}},
			{ID: "shard_usa_central", Active: true, Priority: 2, Geographic: domain.GeographicScope{Regions: []string{"USA_CENTRAL"}}},
			{ID: "shard_international", Active: true, Priority: 3},
			{ID: "shard_retired", Active: false, Priority: 0, Geographic: domain.GeographicScope{Regions: []string{"USA_LOST"}}},
		},
	})
	require.NoError(t, err)
	return reg
}

func newTestCoordinator(t *testing.T, health *MockHealth, executor Executor, cfg config.RouterConfig) *Coordinator {
	t.Helper()
	placer := &MockPlacer{PlaceForWriteFn: func(r domain.ProfileRecord) string { return "shard_" + r.ID }}
	c := NewCoordinator(testRegistry(t), health, executor, placer, cfg, testLexicon)
	t.Cleanup(c.Close)
	return c
}

func profilesFor(scores map[string][]float64) *MockExecutor {
	return &MockExecutor{SearchFn: func(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error) {
		var out []domain.ProfileSummary
		for i, s := range scores[shardID] {
			out = append(out, domain.ProfileSummary{ID: shardID + "-" + string(rune('a'+i)), SimilarityScore: s})
		}
		return out, nil
	}}
}

func scoresOf(profiles []domain.ProfileSummary) []float64 {
	out := make([]float64, len(profiles))
	for i, p := range profiles {
		out[i] = p.SimilarityScore
	}
	return out
}

func TestCoordinator_RouteMergesByScore(t *testing.T) {
	executor := profilesFor(map[string][]float64{
		"shard_usa_east":    {0.9, 0.7},
		"shard_usa_west":    {0.95},
		"shard_usa_central": {0.5, 0.6},
	})
	c := newTestCoordinator(t, newMockHealth("shard_international"), executor, config.RouterConfig{})

	result := c.Route(context.Background(), "golang engineer", 3, 0.4)

	require.True(t, result.Success)
	assert.Equal(t, []float64{0.95, 0.9, 0.7}, scoresOf(result.Profiles))
	assert.Equal(t, 5, result.TotalFound)
	assert.Equal(t, 3, result.ShardsQueried)
	assert.Empty(t, result.ErrorMessage)
	for _, p := range result.Profiles {
		assert.Contains(t, p.ID, p.ShardID, "profile tagged with wrong shard")
	}
}

func TestAggregate(t *testing.T) {
	results := []domain.ShardSearchResult{
		{ShardID: "a", Success: true, TotalFound: 2, ExecutionTimeMs: 40, Profiles: []domain.ProfileSummary{
			{ID: "a1", SimilarityScore: 0.8}, {ID: "a2", SimilarityScore: 0.6},
		}},
		{ShardID: "b", Success: false, ExecutionTimeMs: 90, ErrorMessage: "boom", Profiles: []domain.ProfileSummary{}},
		{ShardID: "c", Success: true, TotalFound: 1, ExecutionTimeMs: 15, Profiles: []domain.ProfileSummary{
			{ID: "c1", SimilarityScore: 0.8},
		}},
	}
	before := append([]domain.ShardSearchResult(nil), results...)

	agg := Aggregate(domain.SearchRequest{Query: "q", Limit: 10, Threshold: 0.5}, results)

	assert.True(t, agg.Success)
	assert.Equal(t, int64(90), agg.ExecutionTimeMs)
	assert.Equal(t, 3, agg.TotalFound)
	// Ties keep shard order.
	ids := []string{agg.Profiles[0].ID, agg.Profiles[1].ID, agg.Profiles[2].ID}
	assert.Equal(t, []string{"a1", "c1", "a2"}, ids)

	want := []domain.ShardOutcome{
		{ShardID: "a", Found: 2, ExecutionTimeMs: 40, Success: true},
		{ShardID: "b", ExecutionTimeMs: 90, ErrorMessage: "boom"},
		{ShardID: "c", Found: 1, ExecutionTimeMs: 15, Success: true},
	}
	if diff := cmp.Diff(want, agg.Shards); diff != "" {
		t.Errorf("shard outcomes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, results); diff != "" {
		t.Errorf("inputs were modified (-before +after):\n%s", diff)
	}
}

func TestCoordinator_RouteAllShardsUnhealthy(t *testing.T) {
	executor := profilesFor(nil)
	health := newMockHealth("shard_usa_east", "shard_usa_west", "shard_usa_central", "shard_international")
	c := newTestCoordinator(t, health, executor, config.RouterConfig{})

	result := c.Route(context.Background(), "anyone", 10, 0.7)

	assert.False(t, result.Success)
	assert.Empty(t, result.Profiles)
	assert.NotNil(t, result.Profiles)
	assert.Equal(t, 0, result.TotalFound)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Empty(t, executor.Queried())
}

func TestCoordinator_RouteAllShardsFail(t *testing.T) {
	executor := &MockExecutor{SearchFn: func(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error) {
		return nil, errors.New("throttled")
	}}
	health := newMockHealth()
	c := newTestCoordinator(t, health, executor, config.RouterConfig{})

	result := c.Route(context.Background(), "anyone", 10, 0.7)

	assert.False(t, result.Success)
	assert.Empty(t, result.Profiles)
	assert.Equal(t, 0, result.TotalFound)
	assert.Contains(t, result.ErrorMessage, "shard_usa_east: throttled")
	assert.Contains(t, result.ErrorMessage, "shard_international: throttled")
	assert.Equal(t, []bool{false}, health.performance["shard_usa_west"])
}

func TestCoordinator_RoutePartialFailure(t *testing.T) {
	executor := &MockExecutor{SearchFn: func(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error) {
		switch shardID {
		case "shard_usa_west":
			return nil, errors.New("table not found")
		case "shard_usa_central":
			panic("nil pointer in driver")
		default:
			return []domain.ProfileSummary{{ID: shardID, SimilarityScore: 0.8}}, nil
		}
	}}
	health := newMockHealth()
	c := newTestCoordinator(t, health, executor, config.RouterConfig{})

	result := c.Route(context.Background(), "anyone", 10, 0.7)

	require.True(t, result.Success)
	assert.Len(t, result.Profiles, 2)
	assert.Equal(t, 4, result.ShardsQueried)

	outcomes := map[string]domain.ShardOutcome{}
	for _, o := range result.Shards {
		outcomes[o.ShardID] = o
	}
	assert.Equal(t, "table not found", outcomes["shard_usa_west"].ErrorMessage)
	assert.Contains(t, outcomes["shard_usa_central"].ErrorMessage, "nil pointer in driver")
	assert.True(t, outcomes["shard_usa_east"].Success)
}

func TestCoordinator_RouteShardTimeout(t *testing.T) {
	executor := &MockExecutor{SearchFn: func(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error) {
		if shardID == "shard_usa_east" {
			time.Sleep(time.Second)
			return []domain.ProfileSummary{{ID: "late", SimilarityScore: 1}}, nil
		}
		return []domain.ProfileSummary{{ID: shardID, SimilarityScore: 0.5}}, nil
	}}
	c := newTestCoordinator(t, newMockHealth(), executor, config.RouterConfig{ShardTimeout: 30 * time.Millisecond})

	start := time.Now()
	result := c.Route(context.Background(), "anyone", 10, 0.7)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.True(t, result.Success)
	assert.Len(t, result.Profiles, 3)
	for _, p := range result.Profiles {
		assert.NotEqual(t, "late", p.ID)
	}
}

func TestCoordinator_GeographicHints(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "single hint", query: "Data scientists in Texas", want: []string{"shard_usa_central"}},
		{name: "two keywords same region", query: "seattle or california", want: []string{"shard_usa_west"}},
		{name: "hints across regions", query: "boston and seattle", want: []string{"shard_usa_east", "shard_usa_west"}},
		{name: "hint to inactive shard broadcasts", query: "atlantis", want: []string{"shard_usa_east", "shard_usa_west", "shard_usa_central", "shard_international"}},
		{name: "no hint broadcasts", query: "rust developer", want: []string{"shard_usa_east", "shard_usa_west", "shard_usa_central", "shard_international"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoordinator(t, newMockHealth(), profilesFor(nil), config.RouterConfig{})
			assert.Equal(t, tt.want, c.TargetShards(c.normalizeRequest(domain.SearchRequest{Query: tt.query})))
		})
	}
}

func TestCoordinator_RouteIsIdempotent(t *testing.T) {
	executor := profilesFor(map[string][]float64{"shard_usa_west": {0.9}})
	c := newTestCoordinator(t, newMockHealth(), executor, config.RouterConfig{})
	ctx := context.Background()

	first := c.Route(ctx, "engineers in California", 5, 0.7)
	second := c.Route(ctx, "  ENGINEERS in   california ", 5, 0.7)

	assert.Equal(t, first.Shards[0].ShardID, second.Shards[0].ShardID)
	assert.Equal(t, 1, c.routes.Len())
	assert.Equal(t, []string{"shard_usa_west", "shard_usa_west"}, executor.Queried())
}

func TestCoordinator_CachedRoutesStillFilterHealth(t *testing.T) {
	executor := profilesFor(nil)
	health := newMockHealth()
	c := newTestCoordinator(t, health, executor, config.RouterConfig{})
	ctx := context.Background()

	c.Route(ctx, "developers", 10, 0.7)
	require.Equal(t, 1, c.routes.Len())

	health.mu.Lock()
	health.unhealthy["shard_usa_east"] = true
	health.mu.Unlock()

	result := c.Route(ctx, "developers", 10, 0.7)
	assert.Equal(t, 3, result.ShardsQueried)
}

func TestCoordinator_HealthChangeInvalidatesRoutes(t *testing.T) {
	health := newMockHealth()
	c := newTestCoordinator(t, health, profilesFor(nil), config.RouterConfig{})

	c.Route(context.Background(), "developers", 10, 0.7)
	require.Equal(t, 1, c.routes.Len())

	health.Flip("shard_usa_west", false)
	assert.Equal(t, 0, c.routes.Len())
}

func TestCoordinator_RouteCacheIsBounded(t *testing.T) {
	c := newTestCoordinator(t, newMockHealth(), profilesFor(nil), config.RouterConfig{CacheCapacity: 2})

	for _, q := range []string{"a", "b", "c", "d"} {
		c.TargetShards(c.normalizeRequest(domain.SearchRequest{Query: q}))
	}
	assert.Equal(t, 2, c.routes.Len())
}

func TestCoordinator_NormalizeRequest(t *testing.T) {
	c := newTestCoordinator(t, newMockHealth(), profilesFor(nil), config.RouterConfig{})

	tests := []struct {
		in   domain.SearchRequest
		want domain.SearchRequest
	}{
		{in: domain.SearchRequest{Query: " q ", Limit: 0, Threshold: 0.7}, want: domain.SearchRequest{Query: "q", Limit: 10, Threshold: 0.7}},
		{in: domain.SearchRequest{Query: "q", Limit: 500, Threshold: 1.5}, want: domain.SearchRequest{Query: "q", Limit: 100, Threshold: 1}},
		{in: domain.SearchRequest{Query: "q", Limit: 5, Threshold: -1}, want: domain.SearchRequest{Query: "q", Limit: 5, Threshold: 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.normalizeRequest(tt.in))
	}
}

func TestCoordinator_CoordinatorHealthAndPlacement(t *testing.T) {
	c := newTestCoordinator(t, newMockHealth("shard_international"), profilesFor(nil), config.RouterConfig{})
	c.Route(context.Background(), "texas", 10, 0.7)

	got := c.CoordinatorHealth(context.Background())
	assert.Equal(t, domain.CoordinatorHealth{
		ShardsConfigured: 4,
		ShardsHealthy:    3,
		CacheSize:        1,
		ShardingEnabled:  true,
		Strategy:         "geographic_hash",
	}, got)

	assert.Equal(t, "shard_p1", c.DetermineProfileShard(domain.ProfileRecord{ID: "p1"}))
}

func TestCoordinator_CoordinateSearchHonoursCancellation(t *testing.T) {
	executor := profilesFor(map[string][]float64{"shard_usa_east": {0.9}})
	c := newTestCoordinator(t, newMockHealth(), executor, config.RouterConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := c.CoordinateSearch(ctx, domain.SearchRequest{Query: "anyone", Limit: 5, Threshold: 0.5})
	assert.False(t, result.Success)
	assert.Empty(t, executor.Queried())
}

func TestCoordinator_CancelledSearchRecordsNoShardFailure(t *testing.T) {
	executor := &MockExecutor{SearchFn: func(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return []domain.ProfileSummary{{ID: shardID + "-a", SimilarityScore: 0.9}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	mockHealth := newMockHealth()
	c := newTestCoordinator(t, mockHealth, executor, config.RouterConfig{ShardTimeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	result := c.Route(ctx, "golang engineer", 5, 0.5)
	assert.False(t, result.Success)

	mockHealth.mu.Lock()
	defer mockHealth.mu.Unlock()
	assert.Empty(t, mockHealth.performance)
}

type staticProber int64

func (p staticProber) Count(ctx context.Context, shardID string) (int64, error) {
	return int64(p), nil
}

func TestCoordinator_FirstHealthObservationKeepsCachedRoute(t *testing.T) {
	reg := testRegistry(t)
	monitor := health.NewMonitor(reg, staticProber(10), config.HealthConfig{})
	executor := profilesFor(map[string][]float64{"shard_usa_east": {0.9}})
	placer := &MockPlacer{PlaceForWriteFn: func(r domain.ProfileRecord) string { return "shard_" + r.ID }}
	c := NewCoordinator(reg, monitor, executor, placer, config.RouterConfig{}, testLexicon)
	t.Cleanup(c.Close)

	result := c.Route(context.Background(), "golang engineer", 5, 0.5)
	require.True(t, result.Success)
	assert.Equal(t, 1, c.routes.Len())
}
