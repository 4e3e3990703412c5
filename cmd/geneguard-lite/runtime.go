package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/audit"
	"github.com/geneguard-server/internal/config"
	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/internal/logging"
	"github.com/geneguard-server/internal/repository"
	"github.com/geneguard-server/internal/service"
	"github.com/geneguard-server/pkg/adagio"
	"github.com/geneguard-server/pkg/external"
)

// liteActor is recorded as the actor of CLI audit entries
const liteActor = "cli"

// runtime holds the wired pipeline for one CLI invocation
type runtime struct {
	cfg      *config.LiteConfig
	logger   *logrus.Logger
	analysis *service.AnalysisService
	audit    *audit.SQLiteStore
}

func newRuntime(ctx context.Context, cfg *config.LiteConfig) (*runtime, error) {
	logger, err := logging.New(domain.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	auditStore, err := audit.NewSQLiteStore(cfg.AuditDBPath())
	if err != nil {
		return nil, err
	}

	generator, err := external.NewTipGenerator(ctx, domain.TipsConfig{
		Provider: cfg.TipProvider,
		Model:    cfg.TipModel,
		APIKey:   cfg.TipAPIKey,
		Timeout:  cfg.TipTimeout,
	})
	if err != nil {
		auditStore.Close()
		return nil, err
	}
	tips, err := service.NewTipService(generator, nil, service.TipServiceConfig{
		MemoryCacheSize: cfg.TipCacheEntries,
		Timeout:         cfg.TipTimeout,
		CircuitBreaker:  external.DefaultCircuitBreakerConfig(),
	}, logger)
	if err != nil {
		auditStore.Close()
		return nil, err
	}

	variants, err := external.NewMyVariantClient(external.MyVariantConfig{
		BaseURL:        cfg.MyVariantURL,
		CircuitBreaker: external.DefaultCircuitBreakerConfig(),
	}, logger)
	if err != nil {
		auditStore.Close()
		return nil, err
	}

	tables := service.NewRiskTableProvider(adagio.NewFileSource(cfg.RiskDataDir, logger), logger)
	annotator := service.NewRiskAnnotator(tables, tips, service.RiskAnnotatorConfig{}, logger)
	ranker := service.NewDiseaseRanker(tables, annotator, service.DiseaseRankerConfig{}, logger)
	analysis := service.NewAnalysisService(
		service.NewGeneExtractor(variants, logger),
		annotator,
		ranker,
		repository.NewMemoryAnalysisRepository(),
		auditStore,
		service.AnalysisServiceConfig{DefaultMaxRecords: cfg.MaxRecords},
		logger,
	)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		analysis: analysis,
		audit:    auditStore,
	}, nil
}

func (r *runtime) Close() error {
	return r.audit.Close()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
