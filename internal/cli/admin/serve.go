package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/rerankd/internal/api/handlers"
	"github.com/cloo-solutions/rerankd/internal/jobs"
	"github.com/cloo-solutions/rerankd/internal/server"
	"github.com/cloo-solutions/rerankd/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the rerankd API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides RERANKD_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", defaultMigrationsSource, "Migrations source URL")
	cmd.Flags().Duration("export-interval", 0, "Upload a feedback history export at this interval (requires S3, overrides RERANKD_EXPORT_INTERVAL)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	shutdownTelemetry := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate(),
		Debug:            cfg.Debug,
	}, logger)
	defer shutdownTelemetry()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		err := runWithMigrator(cfg, source, func(m *migrate.Migrate) error {
			return migrateUp(m, logger)
		})
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var exportWorker *jobs.Worker
	if cmd.Flags().Changed("export-interval") {
		cfg.ExportInterval, _ = cmd.Flags().GetDuration("export-interval")
	}
	if interval := cfg.ExportInterval; interval > 0 {
		s3Client, err := newS3Client(ctx, cfg)
		if err != nil {
			return err
		}
		processor := jobs.NewExportProcessor(a.exporter, s3Client, logger.Named("export"))
		exportWorker = jobs.NewWorker(processor, jobs.WorkerConfig{Interval: interval}, logger.Named("worker"))
		go exportWorker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:          logger.Named("http"),
		Gatherer:        a.registry,
		RerankHandler:   handlers.NewRerankHandler(a.reranker),
		SearchHandler:   handlers.NewSearchHandler(a.searchLog),
		FeedbackHandler: handlers.NewFeedbackHandler(a.ledger, a.exporter),
		ResultHandler:   handlers.NewResultHandler(a.resolver),
		MaxBodyBytes:    cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port), zap.String("primary_portal", cfg.PrimaryPortal))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("shutting down")

	if exportWorker != nil {
		exportWorker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
