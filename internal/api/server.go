package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/internal/middleware"
	"github.com/geneguard-server/internal/service"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	analysis      *service.AnalysisService
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server

	checksMu sync.RWMutex
	checks   map[string]HealthCheck
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, analysis *service.AnalysisService, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(middleware.NewClientRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)))

	server := &Server{
		configManager: configManager,
		analysis:      analysis,
		logger:        logger,
		router:        router,
		checks:        make(map[string]HealthCheck),
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// AddHealthCheck registers a dependency probe reported by /health
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checksMu.Lock()
	defer s.checksMu.Unlock()
	s.checks[name] = check
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	maxUpload := s.configManager.GetServerConfig().MaxUploadBytes

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/diseases", s.handleListDiseases)
		v1.POST("/upload-genome", middleware.MaxBodySize(maxUpload), s.handleUploadGenome)
		v1.POST("/auto-rank", middleware.MaxBodySize(maxUpload), s.handleAutoRank)
		v1.GET("/results", s.handleListResults)
		v1.GET("/results/:id", s.handleGetResult)
		v1.GET("/results/:id/csv", s.handleExportCSV)
		v1.DELETE("/results/:id", s.handleDeleteResult)
	}
}

// handleHealth reports the status of every registered dependency
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	s.checksMu.RLock()
	defer s.checksMu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC(),
		"version":    Version,
	})
}
