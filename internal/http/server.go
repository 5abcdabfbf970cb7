// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/credentials/internal/auth/http"
	authService "github.com/allisson/credentials/internal/auth/service"
	"github.com/allisson/credentials/internal/config"
	credentialsHTTP "github.com/allisson/credentials/internal/credentials/http"
	"github.com/allisson/credentials/internal/metrics"
)

// StoragePinger checks that the storage backend is reachable.
type StoragePinger interface {
	PingContext(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  *gin.Engine
	storage StoragePinger
	logger  *slog.Logger
}

// NewServer creates a new HTTP server. The router is built by SetupRouter.
func NewServer(
	storage StoragePinger,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		storage: storage,
		logger:  logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// SetupRouter builds the gin router with every route and middleware.
//
// The rate limiter cleanup goroutine stops when ctx is done.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	credentialHandler *credentialsHTTP.CredentialHandler,
	tokenService authService.TokenService,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(authHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	if cfg.APITokenHash != "" {
		v1.Use(authHTTP.AuthenticationMiddleware(cfg.APITokenHash, tokenService, s.logger))
	} else {
		s.logger.Warn("API_TOKEN_HASH is not set, the credential API is unauthenticated")
	}

	credentialHandler.RegisterRoutes(v1.Group("/credentials"))

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router is not set up")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports not_ready until the storage backend answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	storageStatus := "ok"
	if s.storage == nil {
		storageStatus = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.storage.PingContext(ctx); err != nil {
			s.logger.Warn("storage ping failed", slog.Any("error", err))
			storageStatus = "error"
		}
	}

	status, code := "ready", http.StatusOK
	if storageStatus != "ok" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": gin.H{"storage": storageStatus},
	})
}
