package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/internal/config"
	"github.com/cuongbtq/career-assistant/shared/logger"
	"github.com/cuongbtq/career-assistant/shared/postgresql"
)

const app = "invite-cli"

// storageOpener connects to the invite table; close releases the connection
type storageOpener func(ctx context.Context, configPath string) (store *storage.Storage, close func(), err error)

func newRootCmd(open storageOpener) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          app,
		Short:        "invite-cli manages registration invite codes",
		SilenceUsage: true,
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the api-service configuration file")

	withStorage := func(cmd *cobra.Command, fn func(*storage.Storage) error) error {
		store, closeStore, err := open(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer closeStore()
		return fn(store)
	}

	rootCmd.AddCommand(newGenerateCmd(withStorage), newListCmd(withStorage))
	return rootCmd
}

func openStorage(_ context.Context, configPath string) (*storage.Storage, func(), error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return storage.NewStorage(dbClient.GetDB()), func() { dbClient.Close() }, nil
}
