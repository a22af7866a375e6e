package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/talentshard/internal/catalog"
	"github.com/zzenonn/talentshard/internal/config"
	"github.com/zzenonn/talentshard/internal/logging"
	"github.com/zzenonn/talentshard/internal/repository/db"
)

var (
	cfg        *config.Config
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "talentshard",
	Short: "Shard-aware search and placement for profile data",
	Long:  "A CLI that routes profile searches across geographic and hash shards, places profile writes and reports shard health",
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create one profile table per configured shard",
	Run: func(cmd *cobra.Command, args []string) {
		dynamoDb, err := newDatabase(cmd.Context())
		if err != nil {
			fmt.Printf("Failed to connect to the database: %v\n", err)
			return
		}

		if err := dynamoDb.MigrateDb(cmd.Context(), cfg.Sharding.Shards); err != nil {
			fmt.Printf("Failed to migrate the database: %v\n", err)
			return
		}

		fmt.Println("Shard tables created successfully")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop the profile tables of all configured shards",
	Run: func(cmd *cobra.Command, args []string) {
		dynamoDb, err := newDatabase(cmd.Context())
		if err != nil {
			fmt.Printf("Failed to connect to the database: %v\n", err)
			return
		}

		if err := dynamoDb.MigrateDown(cmd.Context(), cfg.Sharding.Shards); err != nil {
			fmt.Printf("Failed to roll back migrations: %v\n", err)
			return
		}

		fmt.Println("Shard tables dropped successfully")
	},
}

func initConfig() {
	if logLevel != "" {
		config.SetConfigValue("log_level", logLevel)
	}

	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	if cfg.Catalog.Source != "" {
		sharding, err := loadCatalog(context.Background(), cfg.Catalog)
		if err != nil {
			log.Fatalf("Error loading shard catalog: %v", err)
		}
		cfg.Sharding = sharding
	}
}

// loadCatalog creates only the cloud clients the catalog location needs.
func loadCatalog(ctx context.Context, cc config.CatalogConfig) (config.ShardingConfig, error) {
	var (
		repos     catalog.RepositoryFactory
		ssmClient catalog.SSMAPI
	)

	if strings.Contains(cc.Source, "://") {
		awsCfg, err := config.LoadAWSConfig(ctx)
		if err != nil {
			return config.ShardingConfig{}, err
		}

		switch {
		case strings.HasPrefix(cc.Source, "gs://"):
			gcsClient, err := config.NewGCSClient(ctx)
			if err != nil {
				return config.ShardingConfig{}, err
			}
			repos = objectRepositoryFactory(awsCfg, gcsClient)
		case strings.HasPrefix(cc.Source, "ssm://"):
			ssmClient = newSSMClient(awsCfg)
		default:
			repos = objectRepositoryFactory(awsCfg, nil)
		}
	}

	src, err := catalog.Resolve(cc.Source, repos, ssmClient, cc.Quiet)
	if err != nil {
		return config.ShardingConfig{}, err
	}
	return catalog.Load(ctx, src)
}

func newDatabase(ctx context.Context) (*db.DynamoDb, error) {
	awsCfg, err := config.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return db.NewDatabase(awsCfg, cfg.DynamoDB.Endpoint)
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
