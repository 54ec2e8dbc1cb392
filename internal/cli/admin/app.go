package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/rerankd/internal/config"
	"github.com/cloo-solutions/rerankd/internal/database"
	"github.com/cloo-solutions/rerankd/internal/logging"
	"github.com/cloo-solutions/rerankd/internal/metrics"
	"github.com/cloo-solutions/rerankd/internal/repository"
	"github.com/cloo-solutions/rerankd/internal/service"
	"github.com/cloo-solutions/rerankd/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app holds everything a command needs once config is loaded.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	pool     *pgxpool.Pool
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	resolver  *service.IdentityResolver
	ledger    *service.FeedbackLedger
	reranker  *service.Reranker
	searchLog *service.SearchLogService
	exporter  *service.ExportService
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.Debug || !cfg.IsProduction()), nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	policy := repository.RetryPolicy{
		MaxRetries: cfg.StoreMaxRetries,
		BaseDelay:  cfg.StoreRetryBaseDelay,
		MaxDelay:   cfg.StoreRetryMaxDelay,
	}
	txRunner := repository.NewTxRunner(pool, policy, logger.Named("store"), m)

	resolver := service.NewIdentityResolver(txRunner, m)
	ledger := service.NewFeedbackLedger(txRunner, resolver, cfg.PrimaryPortal, logger.Named("ledger"), m)

	return &app{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		registry:  registry,
		metrics:   m,
		resolver:  resolver,
		ledger:    ledger,
		reranker:  service.NewReranker(txRunner, ledger, cfg.PrimaryPortal, logger.Named("reranker"), m),
		searchLog: service.NewSearchLogService(txRunner, cfg.PrimaryPortal),
		exporter:  service.NewExportService(txRunner, logger.Named("export"), m),
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, fmt.Errorf("S3 is not configured: set %[1]s_S3_ENDPOINT, %[1]s_S3_ACCESS_KEY_ID and %[1]s_S3_SECRET_ACCESS_KEY", config.Prefix)
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	return client, nil
}
