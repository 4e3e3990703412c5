// Package config loads service configuration. Manager reads config.yaml and
// GENEGUARD_* variables through viper; LiteConfig is the env-only variant
// used by the standalone CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no database or Redis and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir     string // Base directory for the audit log and exports
	RiskDataDir string // Directory holding adagio_<disease>.json tables

	// Annotation
	MyVariantURL string
	MaxRecords   int

	// Tips
	TipProvider     string // static, openai, gemini
	TipModel        string
	TipAPIKey       string
	TipTimeout      time.Duration
	TipCacheEntries int

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".geneguard")

	return &LiteConfig{
		DataDir:         dataDir,
		RiskDataDir:     "data",
		MyVariantURL:    "https://myvariant.info",
		MaxRecords:      10000,
		TipProvider:     "static",
		TipTimeout:      20 * time.Second,
		TipCacheEntries: 1000,
		LogLevel:        "warn",
		LogFormat:       "text",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("GENEGUARD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GENEGUARD_RISK_DATA_DIR"); v != "" {
		cfg.RiskDataDir = v
	}

	if v := os.Getenv("GENEGUARD_MYVARIANT_URL"); v != "" {
		cfg.MyVariantURL = v
	}
	if v := os.Getenv("GENEGUARD_MAX_RECORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRecords = n
		}
	}

	if v := os.Getenv("GENEGUARD_TIP_PROVIDER"); v != "" {
		cfg.TipProvider = v
	}
	cfg.TipModel = os.Getenv("GENEGUARD_TIP_MODEL")
	cfg.TipAPIKey = os.Getenv("GENEGUARD_TIP_API_KEY")
	if v := os.Getenv("GENEGUARD_TIP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TipTimeout = d
		}
	}
	if v := os.Getenv("GENEGUARD_TIP_CACHE_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TipCacheEntries = n
		}
	}

	if v := os.Getenv("GENEGUARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GENEGUARD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// AuditDBPath returns the path to the audit SQLite database.
func (c *LiteConfig) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// ExportDir returns the directory for CSV exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
