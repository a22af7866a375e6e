package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/talentshard/internal/domain"
	"github.com/zzenonn/talentshard/internal/repository/migrate"
)

type DynamoDb struct {
	Client *dynamodb.Client
}

// NewDatabase creates the DynamoDB client. A non-empty endpoint overrides the
// service endpoint, e.g. http://localhost:8000 for DynamoDB Local.
func NewDatabase(awsConfig aws.Config, endpoint string) (*DynamoDb, error) {
	client := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	if client == nil {
		return nil, fmt.Errorf("failed to create DynamoDB client")
	}

	if endpoint != "" {
		log.Debugf("Using DynamoDB endpoint %s", endpoint)
	}

	return &DynamoDb{
		Client: client,
	}, nil
}

// MigrateDb creates one profile table per configured shard.
func (d *DynamoDb) MigrateDb(ctx context.Context, shards []domain.ShardDefinition) error {
	return migrate.NewRunner(d.Client, migrate.ShardTables(shards)).Up(ctx)
}

// MigrateDown drops the profile tables of the configured shards.
func (d *DynamoDb) MigrateDown(ctx context.Context, shards []domain.ShardDefinition) error {
	return migrate.NewRunner(d.Client, migrate.ShardTables(shards)).Down(ctx)
}
