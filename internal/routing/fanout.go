package routing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/zzenonn/talentshard/internal/domain"
	apperrors "github.com/zzenonn/talentshard/internal/errors"
	"github.com/zzenonn/talentshard/internal/metrics"
)

// Route searches the healthy target shards for query in parallel and returns
// the top maxResults profiles across all of them, best score first.
func (c *Coordinator) Route(ctx context.Context, query string, maxResults int, threshold float64) domain.AggregatedSearchResult {
	req := c.normalizeRequest(domain.SearchRequest{Query: query, Limit: maxResults, Threshold: threshold})
	logger := log.WithField("request_id", uuid.NewString())

	targets := c.TargetShards(req)
	healthy := c.healthyShards(ctx, targets)
	logger.WithField("shards", healthy).Debugf("Routing query to %d of %d target shards", len(healthy), len(targets))

	if len(healthy) == 0 {
		logger.Warn("No healthy shards available for query")
		metrics.RecordSearch(0, metrics.OutcomeFailed)
		return domain.AggregatedSearchResult{
			Query:        req.Query,
			Threshold:    req.Threshold,
			Profiles:     []domain.ProfileSummary{},
			Shards:       []domain.ShardOutcome{},
			Success:      false,
			ErrorMessage: apperrors.ErrNoHealthyShards.Error(),
		}
	}

	results := c.fanOut(ctx, req, healthy)
	agg := Aggregate(req, results)

	switch {
	case !agg.Success:
		logger.Errorf("All %d shards failed: %s", len(healthy), agg.ErrorMessage)
		metrics.RecordSearch(len(healthy), metrics.OutcomeFailed)
	case countFailed(results) > 0:
		logger.Warnf("%d of %d shards failed", countFailed(results), len(healthy))
		metrics.RecordSearch(len(healthy), metrics.OutcomePartial)
	default:
		metrics.RecordSearch(len(healthy), metrics.OutcomeSuccess)
	}
	logger.Debugf("Search completed: %d of %d profiles returned in %dms", len(agg.Profiles), agg.TotalFound, agg.ExecutionTimeMs)
	return agg
}

// fanOut queries every shard concurrently and waits for all of them.
// results[i] belongs to shards[i].
func (c *Coordinator) fanOut(ctx context.Context, req domain.SearchRequest, shards []string) []domain.ShardSearchResult {
	results := make([]domain.ShardSearchResult, len(shards))

	var g errgroup.Group
	g.SetLimit(c.cfg.MaxParallel)
	for i, shardID := range shards {
		g.Go(func() error {
			results[i] = c.searchShard(ctx, req, shardID)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type shardReply struct {
	profiles []domain.ProfileSummary
	err      error
}

// searchShard runs the executor under the per-shard timeout. The executor
// call continues in the background if it ignores cancellation; its reply is
// then discarded.
func (c *Coordinator) searchShard(ctx context.Context, req domain.SearchRequest, shardID string) domain.ShardSearchResult {
	start := time.Now()
	result := domain.ShardSearchResult{ShardID: shardID, Profiles: []domain.ProfileSummary{}}

	if err := ctx.Err(); err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	sctx, cancel := context.WithTimeout(ctx, c.cfg.ShardTimeout)
	defer cancel()

	done := make(chan shardReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- shardReply{err: fmt.Errorf("%w: %v", apperrors.ErrShardPanic, r)}
			}
		}()
		profiles, err := c.executor.Search(sctx, shardID, req.Query, req.Threshold, req.Limit)
		done <- shardReply{profiles: profiles, err: err}
	}()

	var reply shardReply
	select {
	case reply = <-done:
	case <-sctx.Done():
		reply = shardReply{err: fmt.Errorf("shard %s: %w", shardID, sctx.Err())}
	}

	elapsed := time.Since(start).Milliseconds()
	result.ExecutionTimeMs = elapsed
	// A failure caused by the caller's cancellation says nothing about the shard.
	if reply.err == nil || ctx.Err() == nil {
		c.health.RecordPerformance(shardID, elapsed, reply.err == nil)
	}

	if reply.err != nil {
		log.WithField("shard", shardID).Warnf("Shard search failed: %v", reply.err)
		result.ErrorMessage = reply.err.Error()
		return result
	}

	profiles := make([]domain.ProfileSummary, len(reply.profiles))
	for i, p := range reply.profiles {
		p.ShardID = shardID
		profiles[i] = p
	}
	result.Profiles = profiles
	result.TotalFound = len(profiles)
	result.Success = true
	return result
}

// Aggregate merges per-shard results into one ranked result. Profiles are
// ordered by descending similarity with ties kept in shard order, then
// truncated to req.Limit. The inputs are not modified.
func Aggregate(req domain.SearchRequest, results []domain.ShardSearchResult) domain.AggregatedSearchResult {
	agg := domain.AggregatedSearchResult{
		Query:         req.Query,
		Threshold:     req.Threshold,
		Profiles:      []domain.ProfileSummary{},
		ShardsQueried: len(results),
		Shards:        make([]domain.ShardOutcome, 0, len(results)),
	}

	var errs error
	for _, r := range results {
		agg.Shards = append(agg.Shards, domain.ShardOutcome{
			ShardID:         r.ShardID,
			Found:           r.TotalFound,
			ExecutionTimeMs: r.ExecutionTimeMs,
			Success:         r.Success,
			ErrorMessage:    r.ErrorMessage,
		})
		if r.ExecutionTimeMs > agg.ExecutionTimeMs {
			agg.ExecutionTimeMs = r.ExecutionTimeMs
		}
		if !r.Success {
			errs = multierr.Append(errs, fmt.Errorf("%s: %s", r.ShardID, r.ErrorMessage))
			continue
		}
		agg.Success = true
		agg.TotalFound += r.TotalFound
		agg.Profiles = append(agg.Profiles, r.Profiles...)
	}

	sort.SliceStable(agg.Profiles, func(i, j int) bool {
		return agg.Profiles[i].SimilarityScore > agg.Profiles[j].SimilarityScore
	})
	if req.Limit > 0 && len(agg.Profiles) > req.Limit {
		agg.Profiles = agg.Profiles[:req.Limit]
	}

	if !agg.Success {
		agg.Profiles = []domain.ProfileSummary{}
		agg.TotalFound = 0
		agg.ErrorMessage = "all shard queries failed: " + joinErrors(errs)
	}
	return agg
}

func joinErrors(err error) string {
	errs := multierr.Errors(err)
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func countFailed(results []domain.ShardSearchResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}
