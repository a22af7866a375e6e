package migrate

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zzenonn/talentshard/internal/domain"
)

const ShardTableVersion = "20250801000000_shard_profile_table"

// TableAPI is the subset of the DynamoDB client migrations use.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// CreateShardTable creates the profile table backing one shard.
type CreateShardTable struct {
	ShardID string
	Table   string
	MaxWait time.Duration
}

// ShardTables returns one table migration per shard, inactive shards included.
func ShardTables(shards []domain.ShardDefinition) []Migration {
	migrations := make([]Migration, 0, len(shards))
	for _, s := range shards {
		migrations = append(migrations, &CreateShardTable{ShardID: s.ID, Table: s.Table, MaxWait: 5 * time.Minute})
	}
	return migrations
}

func (m *CreateShardTable) Version() string {
	return ShardTableVersion
}

func (m *CreateShardTable) TableName() string {
	return m.Table
}

func (m *CreateShardTable) Up(ctx context.Context, client TableAPI) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       types.KeyTypeHash, // Partition Key
			},
		},
		TableName:   aws.String(m.Table),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("ProfileShard"),
			},
			{
				Key:   aws.String("ShardId"),
				Value: aws.String(m.ShardID),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(m.Table),
	}, m.MaxWait)
}

func (m *CreateShardTable) Down(ctx context.Context, client TableAPI) error {
	input := &dynamodb.DeleteTableInput{
		TableName: aws.String(m.Table),
	}

	if _, err := client.DeleteTable(ctx, input); err != nil {
		return err
	}

	waiter := dynamodb.NewTableNotExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(m.Table),
	}, m.MaxWait)
}
