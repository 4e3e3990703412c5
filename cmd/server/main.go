package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/api"
	"github.com/geneguard-server/internal/audit"
	"github.com/geneguard-server/internal/config"
	"github.com/geneguard-server/internal/database"
	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/internal/logging"
	"github.com/geneguard-server/internal/repository"
	"github.com/geneguard-server/internal/service"
	"github.com/geneguard-server/pkg/adagio"
	"github.com/geneguard-server/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// Analyses live in Postgres when a database is configured
	var (
		repo domain.AnalysisRepository = repository.NewMemoryAnalysisRepository()
		db   *database.DB
	)
	if cfg.Database.Host != "" {
		dbConfig := database.ConfigFrom(cfg.Database)
		var err error
		db, err = database.NewConnection(ctx, dbConfig, logger)
		if err != nil {
			return err
		}
		closers = append(closers, db.Close)

		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			return err
		}
		if err := runner.Up(ctx); err != nil {
			runner.Close()
			return err
		}
		runner.Close()

		repo = repository.NewAnalysisRepository(db.Pool, logger)
	} else {
		logger.Warn("No database configured, analyses are kept in memory")
	}

	auditStore, err := openAuditStore(cfg.Audit, configManager.GetDatabaseURL())
	if err != nil {
		return err
	}
	var auditor service.AuditRecorder
	if auditStore != nil {
		closers = append(closers, func() { auditStore.Close() })
		auditor = auditStore
	}

	var tipCache service.TipCache
	var redis *external.CacheClient
	if cfg.Cache.RedisURL != "" {
		redis, err = external.NewCacheClient(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, tip caching stays in memory")
		} else {
			closers = append(closers, func() { redis.Close() })
			tipCache = redis
		}
	}

	generator, err := external.NewTipGenerator(ctx, cfg.Tips)
	if err != nil {
		return err
	}
	tips, err := service.NewTipService(generator, tipCache, service.TipServiceConfig{
		MemoryCacheSize: cfg.Tips.MemoryCacheSize,
		Timeout:         cfg.Tips.Timeout,
		CircuitBreaker:  external.DefaultCircuitBreakerConfig(),
	}, logger)
	if err != nil {
		return err
	}

	variants, err := external.NewMyVariantClient(external.MyVariantConfig{
		BaseURL:        cfg.Annotation.BaseURL,
		Timeout:        cfg.Annotation.Timeout,
		RateLimit:      cfg.Annotation.RateLimit,
		BatchSize:      cfg.Annotation.BatchSize,
		CacheSize:      cfg.Annotation.CacheSize,
		CircuitBreaker: external.DefaultCircuitBreakerConfig(),
	}, logger)
	if err != nil {
		return err
	}

	tables := service.NewRiskTableProvider(adagio.NewFileSource(cfg.Risk.DataDir, logger), logger)
	for disease, err := range tables.Preload(ctx) {
		logger.WithFields(logrus.Fields{
			"disease": disease,
			"error":   err,
		}).Error("Risk table failed to load, disease will be skipped when ranking")
	}

	annotator := service.NewRiskAnnotator(tables, tips, service.RiskAnnotatorConfig{
		Policy: service.LevelPolicy{
			HighMaxRank:   cfg.Risk.HighMaxRank,
			MediumMaxRank: cfg.Risk.MediumMaxRank,
		},
		TipConcurrency: cfg.Risk.TipConcurrency,
	}, logger)
	ranker := service.NewDiseaseRanker(tables, annotator, service.DiseaseRankerConfig{
		Concurrency: cfg.Risk.RankerConcurrency,
		DefaultTopN: cfg.Risk.DefaultTopN,
	}, logger)
	analysis := service.NewAnalysisService(
		service.NewGeneExtractor(variants, logger),
		annotator,
		ranker,
		repo,
		auditor,
		service.AnalysisServiceConfig{DefaultMaxRecords: cfg.Risk.DefaultMaxRecords},
		logger,
	)

	server := api.NewServer(configManager, analysis, logger)
	if db != nil {
		server.AddHealthCheck("database", db.Health)
	}
	if tipCache != nil {
		server.AddHealthCheck("redis", redis.Ping)
	}

	logger.WithFields(logrus.Fields{
		"host":         cfg.Server.Host,
		"port":         cfg.Server.Port,
		"tip_provider": generator.Name(),
		"risk_data":    cfg.Risk.DataDir,
	}).Info("Starting GeneGuard server")

	return server.Start(ctx)
}

// openAuditStore returns nil when auditing is disabled
func openAuditStore(cfg domain.AuditConfig, databaseURL string) (audit.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "none":
		return nil, nil
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = databaseURL
		}
		return audit.NewPostgresStoreFromURL(dsn)
	case "sqlite", "":
		return audit.NewSQLiteStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Driver)
	}
}
