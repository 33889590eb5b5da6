package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxidetalis-go/otmpd/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations to the configured PostgreSQL database",
	Long: `Connects to the PostgreSQL database named in configuration and
applies the embedded schema migrations. Safe to run repeatedly: every
statement is guarded with IF NOT EXISTS.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, &postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Name,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
