package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"lst-platform/internal/config"
	"lst-platform/migrations"
	"lst-platform/pkg/database"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

func main() {
	var direction string

	rootCmd := &cobra.Command{
		Use:          "lst-migrate",
		Short:        "Create or drop the LST archive schema",
		Long:         `lst-migrate applies the embedded schema scripts to the database named by DB_DRIVER and DB_DSN.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if direction != "up" && direction != "down" {
				return fmt.Errorf("direction must be up or down, got %q", direction)
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("DB_DSN is required")
			}

			ctx := context.Background()
			logger := logging.NewStructuredLogger("lst-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
			metricsCollector := metrics.NewCollector("lst_migrate", prometheus.DefaultRegisterer)

			db, err := database.Open(ctx, cfg.Database.Options(), logger, metricsCollector)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			fmt.Println("Connected to database successfully")

			migrationFile := "001_create_schema." + direction + ".sql"
			stmts, err := migrations.Statements(migrationFile)
			if err != nil {
				return err
			}

			fmt.Printf("Running migration: %s\n", migrationFile)

			tx, err := db.BeginTx(ctx)
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}
			defer tx.Rollback()

			for i, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
				}
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit migration: %w", err)
			}

			fmt.Println("Migration completed successfully")
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&direction, "direction", "d", "up", "Migration direction: up or down")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
