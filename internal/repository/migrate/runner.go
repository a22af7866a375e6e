package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

// Migration creates or drops one DynamoDB table.
type Migration interface {
	Version() string
	TableName() string
	Up(ctx context.Context, client TableAPI) error
	Down(ctx context.Context, client TableAPI) error
}

// Runner applies migrations in order, skipping tables already in the target state.
type Runner struct {
	client     TableAPI
	migrations []Migration
}

func NewRunner(client TableAPI, migrations []Migration) *Runner {
	return &Runner{client: client, migrations: migrations}
}

// Up creates every missing table. It stops at the first failure.
func (r *Runner) Up(ctx context.Context) error {
	for _, m := range r.migrations {
		exists, err := r.tableExists(ctx, m.TableName())
		if err != nil {
			return err
		}
		if exists {
			log.Infof("Table %s already exists, skipping", m.TableName())
			continue
		}

		log.Infof("Applying migration %s to %s", m.Version(), m.TableName())
		if err := m.Up(ctx, r.client); err != nil {
			return fmt.Errorf("migration %s failed for %s: %w", m.Version(), m.TableName(), err)
		}
	}
	return nil
}

// Down drops every existing table, in reverse order.
func (r *Runner) Down(ctx context.Context) error {
	for i := len(r.migrations) - 1; i >= 0; i-- {
		m := r.migrations[i]
		exists, err := r.tableExists(ctx, m.TableName())
		if err != nil {
			return err
		}
		if !exists {
			log.Infof("Table %s does not exist, skipping", m.TableName())
			continue
		}

		log.Infof("Rolling back migration %s on %s", m.Version(), m.TableName())
		if err := m.Down(ctx, r.client); err != nil {
			return fmt.Errorf("rollback %s failed for %s: %w", m.Version(), m.TableName(), err)
		}
	}
	return nil
}

func (r *Runner) tableExists(ctx context.Context, table string) (bool, error) {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return true, nil
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to describe table %s: %w", table, err)
}
