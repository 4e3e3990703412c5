package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Risk        RiskConfig       `mapstructure:"risk"`
	Tips        TipsConfig       `mapstructure:"tips"`
	Annotation  AnnotationConfig `mapstructure:"annotation"`
	Audit       AuditConfig      `mapstructure:"audit"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second per client
	RateBurst      int           `mapstructure:"rate_burst"`
}

// DatabaseConfig represents database connection configuration.
// An empty Host disables Postgres persistence.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents cache configuration.
// An empty RedisURL keeps tip caching in memory only.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RiskConfig holds the risk pipeline policy and data location
type RiskConfig struct {
	DataDir           string `mapstructure:"data_dir"`
	HighMaxRank       int    `mapstructure:"high_max_rank"`
	MediumMaxRank     int    `mapstructure:"medium_max_rank"`
	TipConcurrency    int    `mapstructure:"tip_concurrency"`
	RankerConcurrency int    `mapstructure:"ranker_concurrency"`
	DefaultTopN       int    `mapstructure:"default_top_n"`
	DefaultMaxRecords int    `mapstructure:"default_max_records"`
}

// TipsConfig configures the lifestyle tip generator
type TipsConfig struct {
	Provider        string        `mapstructure:"provider"` // "openai", "gemini", "static"
	Model           string        `mapstructure:"model"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	MemoryCacheSize int           `mapstructure:"memory_cache_size"`
}

// AnnotationConfig configures the MyVariant.info annotation client
type AnnotationConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	BatchSize  int           `mapstructure:"batch_size"`
	CacheSize  int           `mapstructure:"cache_size"`
	RetryCount int           `mapstructure:"retry_count"`
}

// AuditConfig selects the audit log backend
type AuditConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}
