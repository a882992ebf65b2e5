package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"lst-platform/internal/config"
	"lst-platform/internal/geo"
	"lst-platform/internal/handlers"
	"lst-platform/internal/models"
	"lst-platform/internal/render"
	"lst-platform/internal/repository"
	"lst-platform/internal/services"
	"lst-platform/pkg/database"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	var (
		port     int
		logLevel string
		source   string
	)

	rootCmd := &cobra.Command{
		Use:   "lst-server",
		Short: "Serve daily LST heatmaps and pixel probing",
		Long: `lst-server loads one raster snapshot per day, renders heatmaps,
the legend, the boundary overlay and line graphs, and runs probe sessions
over HTTP and websockets. Settings come from the environment; flags
override them.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("source") {
				cfg.Data.Source = source
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&source, "source", "s", config.SourceDir, "Snapshot source (dir, http, sql)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := logging.NewStructuredLogger("lst-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting LST map API server", logging.Fields{
		"version":     version,
		"server_addr": cfg.Server.Addr(),
		"source":      cfg.Data.Source,
		"year":        cfg.Data.Year,
		"days":        cfg.Data.Days,
	})

	metricsCollector := metrics.NewCollector("lst_platform", prometheus.DefaultRegisterer)
	cal := models.Calendar{Year: cfg.Data.Year}

	source, closeSource, err := openSource(ctx, cfg, cal, logger, metricsCollector)
	if err != nil {
		logger.Error(ctx, "[STARTUP_ERROR] Failed to open snapshot source", logging.Fields{
			"source": cfg.Data.Source,
		}, err)
		return err
	}
	defer closeSource.Close()

	// Services
	store := services.NewDataStore(source, cal, cfg.Data.Days, cfg.Data.LoadConcurrency, logger, metricsCollector)
	probes := services.NewProbeService(store, metricsCollector)

	mapper := geo.NewMapper(geo.ContinentalUS, cfg.Map.CanvasWidth, cfg.Map.CanvasHeight)
	scale, err := render.NewColorScale(cfg.Map.ColorMinK, cfg.Map.ColorMaxK)
	if err != nil {
		return err
	}
	cache, err := render.NewCache(cfg.Map.CacheSize)
	if err != nil {
		return err
	}

	overlay, err := render.LoadOverlay(cfg.Data.OverlayPath)
	if err != nil {
		logger.Warn(ctx, "[OVERLAY_UNAVAILABLE] Boundary file not loaded, drawing placeholder", logging.Fields{
			"path":  cfg.Data.OverlayPath,
			"error": err.Error(),
		})
		overlay = nil
	}

	renderer := render.NewRenderer(mapper, scale, cal, cfg.Map.CellSize)
	renders := services.NewRenderService(renderer, store, overlay, cache, logger, metricsCollector)
	sessions := services.NewSessionService(store, probes, mapper, clockwork.NewRealClock(), cfg.Session.IdleTimeout, logger, metricsCollector)

	// Handlers
	lstHandler := handlers.NewLSTHandler(store, probes, renders, logger, metricsCollector)
	sessionHandler := handlers.NewSessionHandler(sessions, renders, logger, metricsCollector)

	router := mux.NewRouter()
	router.Use(handlers.RequestID)
	lstHandler.RegisterRoutes(router)
	sessionHandler.RegisterRoutes(router)
	handlers.RegisterDocsRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	// Days load in the background; /ready and the render endpoints answer 503
	// until they settle. LOAD_TIMEOUT drops the days still in flight.
	go func() {
		loadCtx, cancel := context.WithTimeout(runCtx, cfg.Data.LoadTimeout)
		defer cancel()
		if _, err := store.LoadAll(loadCtx); err != nil {
			logger.Error(ctx, "[LOAD_ERROR] Snapshot loading did not complete", logging.Fields{}, err)
		}
	}()

	go sessions.Run(runCtx, cfg.Session.SweepInterval)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		return err
	case <-quit:
	}

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{
		"open_sessions": sessions.Count(),
	})
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSource picks the snapshot source named by DATA_SOURCE
func openSource(ctx context.Context, cfg *config.Config, cal models.Calendar, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (repository.SnapshotSource, io.Closer, error) {
	switch cfg.Data.Source {
	case config.SourceDir:
		return repository.NewDirSource(cfg.Data.Dir, cal), nopCloser{}, nil
	case config.SourceHTTP:
		client := &http.Client{Timeout: 30 * time.Second}
		return repository.NewHTTPSource(cfg.Data.BaseURL, client, cal), nopCloser{}, nil
	case config.SourceSQL:
		db, err := database.Open(ctx, cfg.Database.Options(), logger, metricsCollector)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewArchiveRepository(db, cal, logger, metricsCollector), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot source %q", cfg.Data.Source)
	}
}
