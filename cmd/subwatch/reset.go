package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subwatch/subwatch/internal/config"
	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/store/postgres"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the hostname store",
	Long:  "Drops the subdomains table and recreates an empty schema. Every recorded hostname is lost; the next cycle re-alerts the full history.",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the destructive reset")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to reset without --yes")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	db, err := postgres.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() { _ = db.Close() }()

	store := postgres.New(db, log)
	ctx := context.Background()
	if err := store.Reset(ctx); err != nil {
		return err
	}
	if err := store.Migrate(ctx, cfg.DefaultDomain()); err != nil {
		return err
	}

	fmt.Println("✅ hostname store reset")
	return nil
}
