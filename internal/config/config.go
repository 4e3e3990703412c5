package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/geneguard-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerWithPaths(".", "./config", "/etc/geneguard/")
}

// NewManagerWithPaths creates a manager that searches the given
// directories for config.yaml
func NewManagerWithPaths(paths ...string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	for _, p := range paths {
		m.v.AddConfigPath(p)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// GENEGUARD_SERVER_PORT overrides server.port
	v.SetEnvPrefix("GENEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_bytes", 64<<20)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)

	// Database defaults. An empty host keeps analyses in memory.
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "geneguard")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Risk pipeline defaults
	v.SetDefault("risk.data_dir", "data")
	v.SetDefault("risk.high_max_rank", 100)
	v.SetDefault("risk.medium_max_rank", 300)
	v.SetDefault("risk.tip_concurrency", 4)
	v.SetDefault("risk.ranker_concurrency", 4)
	v.SetDefault("risk.default_top_n", 3)
	v.SetDefault("risk.default_max_records", 10000)

	// Tip generator defaults
	v.SetDefault("tips.provider", "static")
	v.SetDefault("tips.model", "")
	v.SetDefault("tips.api_key", "")
	v.SetDefault("tips.base_url", "")
	v.SetDefault("tips.timeout", "20s")
	v.SetDefault("tips.temperature", 0.5)
	v.SetDefault("tips.max_tokens", 256)
	v.SetDefault("tips.memory_cache_size", 2048)

	// MyVariant.info defaults
	v.SetDefault("annotation.base_url", "https://myvariant.info")
	v.SetDefault("annotation.timeout", "30s")
	v.SetDefault("annotation.rate_limit", 5)
	v.SetDefault("annotation.batch_size", 1000)
	v.SetDefault("annotation.cache_size", 100000)
	v.SetDefault("annotation.retry_count", 3)

	// Audit defaults
	v.SetDefault("audit.driver", "sqlite")
	v.SetDefault("audit.dsn", "data/audit.db")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetRiskConfig returns the risk pipeline configuration
func (m *Manager) GetRiskConfig() *domain.RiskConfig {
	return &m.config.Risk
}

// GetTipsConfig returns the tip generator configuration
func (m *Manager) GetTipsConfig() *domain.TipsConfig {
	return &m.config.Tips
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", config.Server.MaxUploadBytes)
	}

	if config.Database.Host != "" {
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if config.Risk.HighMaxRank <= 0 {
		return fmt.Errorf("risk.high_max_rank must be positive, got %d", config.Risk.HighMaxRank)
	}
	if config.Risk.MediumMaxRank < config.Risk.HighMaxRank {
		return fmt.Errorf("risk.medium_max_rank %d must not be below risk.high_max_rank %d",
			config.Risk.MediumMaxRank, config.Risk.HighMaxRank)
	}

	switch strings.ToLower(config.Tips.Provider) {
	case "static", "":
	case "openai", "gemini":
		if config.Tips.APIKey == "" {
			return fmt.Errorf("tips.api_key is required for provider %s", config.Tips.Provider)
		}
	default:
		return fmt.Errorf("invalid tips provider: %s", config.Tips.Provider)
	}

	if config.Annotation.BaseURL == "" {
		return fmt.Errorf("MyVariant base URL is required")
	}

	switch strings.ToLower(config.Audit.Driver) {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("invalid audit driver: %s", config.Audit.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database configuration as a postgres:// URL,
// the form golang-migrate and lib/pq expect.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	sslMode := db.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     db.Host + ":" + strconv.Itoa(db.Port),
		Path:     "/" + db.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
