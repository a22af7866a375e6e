package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/talentshard/internal/domain"
	apperrors "github.com/zzenonn/talentshard/internal/errors"
)

// DynamoAPI is the subset of the DynamoDB client the shard store uses.
type DynamoAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ShardStore executes shard queries and probes against one DynamoDB table per shard.
type ShardStore struct {
	client   DynamoAPI
	tables   map[string]string
	scorer   Scorer
	pageSize int32
}

// Option configures a ShardStore.
type Option func(*ShardStore)

// WithScorer replaces the default term-overlap scorer.
func WithScorer(scorer Scorer) Option {
	return func(s *ShardStore) {
		s.scorer = scorer
	}
}

// WithPageSize sets the Scan page size.
func WithPageSize(n int32) Option {
	return func(s *ShardStore) {
		s.pageSize = n
	}
}

// NewShardStore maps each shard to its table.
func NewShardStore(client DynamoAPI, shards []domain.ShardDefinition, opts ...Option) *ShardStore {
	s := &ShardStore{
		client:   client,
		tables:   make(map[string]string, len(shards)),
		scorer:   TermOverlapScorer,
		pageSize: 500,
	}
	for _, shard := range shards {
		s.tables[shard.ID] = shard.Table
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ShardStore) table(shardID string) (string, error) {
	table, ok := s.tables[shardID]
	if !ok || table == "" {
		return "", fmt.Errorf("%w: %s", apperrors.ErrShardNotFound, shardID)
	}
	return table, nil
}

// Count returns the approximate item count of the shard's table. DynamoDB
// refreshes ItemCount roughly every six hours, which is enough for a
// capacity signal. A table that is not ACTIVE is reported as an error.
func (s *ShardStore) Count(ctx context.Context, shardID string) (int64, error) {
	table, err := s.table(shardID)
	if err != nil {
		return 0, err
	}

	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	if out.Table == nil || out.Table.TableStatus != types.TableStatusActive {
		status := "unknown"
		if out.Table != nil {
			status = string(out.Table.TableStatus)
		}
		return 0, fmt.Errorf("%w: %s is %s", apperrors.ErrTableNotActive, table, status)
	}

	return aws.ToInt64(out.Table.ItemCount), nil
}

// Search scans the shard's table, scores every profile against the query and
// returns those at or above threshold, best first, at most limit of them.
// Cancellation is checked between pages.
func (s *ShardStore) Search(ctx context.Context, shardID, query string, threshold float64, limit int) ([]domain.ProfileSummary, error) {
	table, err := s.table(shardID)
	if err != nil {
		return nil, err
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(table),
		Limit:     aws.Int32(s.pageSize),
	})

	var matches []domain.ProfileSummary
	pages := 0
	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %s: %w", table, err)
		}
		pages++

		var records []domain.ProfileRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profiles: %w", err)
		}

		for _, record := range records {
			score, skills := s.scorer(query, record)
			if score < threshold {
				continue
			}
			matches = append(matches, summarize(record, shardID, score, skills))
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	log.WithField("shard", shardID).Debugf("Scanned %d pages, %d profiles matched", pages, len(matches))
	return matches, nil
}

// PutProfile writes a profile to the shard's table, replacing any previous version.
func (s *ShardStore) PutProfile(ctx context.Context, shardID string, record domain.ProfileRecord) error {
	if record.ID == "" {
		return fmt.Errorf("%w: id", apperrors.ErrMissingRequiredFields)
	}

	table, err := s.table(shardID)
	if err != nil {
		return err
	}

	record.ShardID = shardID
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to write profile %s to %s: %w", record.ID, shardID, err)
	}
	return nil
}

func summarize(record domain.ProfileRecord, shardID string, score float64, skills []string) domain.ProfileSummary {
	return domain.ProfileSummary{
		ID:              record.ID,
		FullName:        record.FullName,
		Headline:        record.Headline,
		Location:        record.Location,
		Industry:        record.Industry,
		CompanyName:     record.CompanyName,
		JobTitle:        record.JobTitle,
		SimilarityScore: score,
		MatchingSkills:  skills,
		Attributes: map[string]string{
			"region":  record.Region,
			"country": record.Country,
		},
		ShardID: shardID,
	}
}
