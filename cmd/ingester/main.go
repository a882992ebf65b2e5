package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"lst-platform/internal/config"
	"lst-platform/internal/models"
	"lst-platform/internal/repository"
	"lst-platform/internal/services"
	"lst-platform/pkg/database"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

const version = "1.0.0"

// options shared by every subcommand
type options struct {
	dataDir  string
	baseURL  string
	days     int
	logLevel string
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "lst-ingester",
		Short: "Archive daily LST snapshots and compute daily means",
		Long: `lst-ingester reads the per-day raster files from a directory or an
HTTP base URL. "ingest" copies them into the SQL archive, "means" writes
daily_mean_LST_US.json straight from the files and "inspect" reports on
each file without writing anything.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.dataDir, "data-dir", "d", "", "Directory containing the day files (default DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Fetch day files over HTTP instead of from a directory")
	rootCmd.PersistentFlags().IntVarP(&opts.days, "days", "n", 0, "Number of days to read (default DATA_DAYS)")
	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (default LOG_LEVEL)")

	rootCmd.AddCommand(ingestCmd(&opts), meansCmd(&opts), inspectCmd(&opts))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func ingestCmd(opts *options) *cobra.Command {
	var (
		batchSize  int
		dailyMeans bool
		exportPath string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Copy day files into the SQL archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			metricsCollector := metrics.NewCollector("lst_ingester", prometheus.DefaultRegisterer)
			cal := models.Calendar{Year: cfg.Data.Year}

			ctx := context.Background()
			logger.Info(ctx, "[INGESTER_START] Starting LST archive ingestion", logging.Fields{
				"version":     version,
				"days":        cfg.Data.Days,
				"batch_size":  batchSize,
				"daily_means": dailyMeans,
			})

			db, err := database.Open(ctx, cfg.Database.Options(), logger, metricsCollector)
			if err != nil {
				logger.Error(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
				return err
			}
			defer db.Close()

			archive := repository.NewArchiveRepository(db, cal, logger, metricsCollector)
			ingestion := services.NewIngestionService(fileSource(cfg, cal), archive, logger, metricsCollector)

			result, err := ingestion.IngestDays(ctx, cfg.Data.Days, batchSize)
			if err != nil {
				logger.Error(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{}, err)
				return err
			}
			printResult(result)

			if !dailyMeans && exportPath == "" {
				return nil
			}

			stats := services.NewStatisticsService(archive, cal, logger, metricsCollector)
			if dailyMeans {
				fmt.Println("\n" + strings.Repeat("=", 80))
				fmt.Println("CALCULATING DAILY MEANS")
				fmt.Println(strings.Repeat("=", 80))

				stored, err := stats.CalculateDailyMeans(ctx)
				if err != nil {
					logger.Error(ctx, "[STATS_ERROR] Daily mean calculation failed", logging.Fields{}, err)
					return err
				}
				fmt.Printf("Stored means:       %d\n", stored)
			}

			if exportPath != "" {
				return writeFile(exportPath, func(f *os.File) (int, error) {
					return stats.ExportDailyMeans(ctx, f)
				})
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 1000, "Samples per insert batch")
	cmd.Flags().BoolVar(&dailyMeans, "daily-means", false, "Compute daily means after ingestion")
	cmd.Flags().StringVarP(&exportPath, "export", "o", "", "Write the stored daily means to this JSON file")
	return cmd
}

func meansCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "means",
		Short: "Compute daily means from the day files without an archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			metricsCollector := metrics.NewCollector("lst_ingester", prometheus.DefaultRegisterer)
			cal := models.Calendar{Year: cfg.Data.Year}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
			defer cancel()

			store := services.NewDataStore(fileSource(cfg, cal), cal, cfg.Data.Days, cfg.Data.LoadConcurrency, logger, metricsCollector)
			if _, err := store.LoadAll(ctx); err != nil {
				logger.Error(ctx, "[LOAD_ERROR] Snapshot loading did not complete", logging.Fields{}, err)
				return err
			}

			return writeFile(output, func(f *os.File) (int, error) {
				return len(store.Means()), store.ExportDailyMeans(f)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "daily_mean_LST_US.json", "Output file")
	return cmd
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Data.Source = config.SourceDir
	if opts.dataDir != "" {
		cfg.Data.Dir = opts.dataDir
	}
	if opts.baseURL != "" {
		cfg.Data.Source = config.SourceHTTP
		cfg.Data.BaseURL = opts.baseURL
	}
	if opts.days > 0 {
		cfg.Data.Days = opts.days
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.StructuredLogger {
	return logging.NewStructuredLogger("lst-ingester", version, logging.ParseLevel(cfg.Logging.Level))
}

func fileSource(cfg *config.Config, cal models.Calendar) repository.SnapshotSource {
	if cfg.Data.Source == config.SourceHTTP {
		return repository.NewHTTPSource(cfg.Data.BaseURL, &http.Client{Timeout: 30 * time.Second}, cal)
	}
	return repository.NewDirSource(cfg.Data.Dir, cal)
}

func writeFile(path string, write func(f *os.File) (int, error)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %d daily means to %s\n", n, path)
	return nil
}

func printResult(result *services.IngestionResult) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Days:         %d\n", result.TotalDays)
	fmt.Printf("Stored Days:        %d\n", result.StoredDays)
	fmt.Printf("Missing Days:       %d\n", result.MissingDays)
	fmt.Printf("Failed Days:        %d\n", result.FailedDays)
	fmt.Printf("Total Samples:      %d\n", result.TotalSamples)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Samples/Second:     %.2f\n", float64(result.TotalSamples)/secs)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}
}
