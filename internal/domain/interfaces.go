package domain

import (
	"context"
)

// RiskTableSource reads the backing risk data for one disease.
// A disease without backing data yields an error wrapping ErrNotFound;
// corrupt data yields an error wrapping ErrMalformedRiskTable.
type RiskTableSource interface {
	LoadRiskTable(ctx context.Context, disease Disease) (*RiskTable, error)
}

// TipProvider returns short lifestyle suggestions for a gene/disease pair.
// Implementations cache results and degrade to an empty list on upstream failure.
type TipProvider interface {
	GetTips(ctx context.Context, gene string, disease Disease) ([]string, error)
}

// TipGenerator is the uncached upstream that produces tips, usually an LLM.
type TipGenerator interface {
	GenerateTips(ctx context.Context, gene string, disease Disease) ([]string, error)
	Name() string
}

// VariantAnnotator maps dbSNP rsIDs onto gene symbols and predicted impact.
type VariantAnnotator interface {
	AnnotateRSIDs(ctx context.Context, rsids []string) (map[string]VariantAnnotation, error)
}

// AnalysisRepository defines the interface for analysis persistence
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *Analysis) error
	GetByID(ctx context.Context, id string) (*Analysis, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*Analysis, error)
	Delete(ctx context.Context, id string) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetRiskConfig() *RiskConfig
	GetTipsConfig() *TipsConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
