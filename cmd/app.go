package main

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/zzenonn/talentshard/internal/catalog"
	"github.com/zzenonn/talentshard/internal/health"
	"github.com/zzenonn/talentshard/internal/placement"
	"github.com/zzenonn/talentshard/internal/registry"
	"github.com/zzenonn/talentshard/internal/repository/db"
	"github.com/zzenonn/talentshard/internal/repository/objectstore"
	"github.com/zzenonn/talentshard/internal/routing"
)

// app holds the wired components shared by the search, place, health and serve commands.
type app struct {
	registry    *registry.Registry
	store       *db.ShardStore
	monitor     *health.Monitor
	resolver    *placement.Resolver
	coordinator *routing.Coordinator
}

func newApp(ctx context.Context) (*app, error) {
	reg, err := registry.New(cfg.Sharding)
	if err != nil {
		return nil, err
	}

	dynamoDb, err := newDatabase(ctx)
	if err != nil {
		return nil, err
	}

	store := db.NewShardStore(dynamoDb.Client, reg.Shards())
	monitor := health.NewMonitor(reg, store, cfg.Health)
	resolver := placement.NewResolver(reg, monitor)
	coordinator := routing.NewCoordinator(reg, monitor, store, resolver, cfg.Router, cfg.Sharding.GeoLexicon)

	return &app{
		registry:    reg,
		store:       store,
		monitor:     monitor,
		resolver:    resolver,
		coordinator: coordinator,
	}, nil
}

func (a *app) Close() {
	a.coordinator.Close()
}

func objectRepositoryFactory(awsCfg aws.Config, gcsClient *storage.Client) catalog.RepositoryFactory {
	return objectstore.NewObjectRepositoryFactory(awsCfg, gcsClient)
}

func newSSMClient(awsCfg aws.Config) catalog.SSMAPI {
	return ssm.NewFromConfig(awsCfg)
}
