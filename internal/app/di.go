// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	authService "github.com/allisson/credentials/internal/auth/service"
	"github.com/allisson/credentials/internal/config"
	credentialsHTTP "github.com/allisson/credentials/internal/credentials/http"
	credentialsUsecase "github.com/allisson/credentials/internal/credentials/usecase"
	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
	cryptoService "github.com/allisson/credentials/internal/crypto/service"
	"github.com/allisson/credentials/internal/database"
	"github.com/allisson/credentials/internal/http"
	"github.com/allisson/credentials/internal/metrics"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	db          *sql.DB
	redisClient *redis.Client

	// Managers
	txManager database.TxManager

	// Crypto
	kmsService  cryptoService.KMSService
	aeadManager cryptoService.AEADManager
	kmsKeeper   cryptoDomain.KMSKeeper
	keyring     *cryptoDomain.Keyring
	sealer      credentialsUsecase.RewrappingSealer

	// Credentials
	credentialStorage credentialsUsecase.CredentialStorage
	credentialManager credentialsUsecase.CredentialManager
	rewrapUseCase     credentialsUsecase.RewrapUseCase
	credentialHandler *credentialsHTTP.CredentialHandler
	tokenService      authService.TokenService

	// Observability
	metricsProvider      *metrics.Provider
	businessMetrics      metrics.BusinessMetrics
	cacheMetricsRegister metric.Registration

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// background is canceled on Shutdown and stops helper goroutines.
	background       context.Context
	cancelBackground context.CancelFunc

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	redisClientInit       sync.Once
	txManagerInit         sync.Once
	kmsServiceInit        sync.Once
	aeadManagerInit       sync.Once
	kmsKeeperInit         sync.Once
	keyringInit           sync.Once
	sealerInit            sync.Once
	credentialStorageInit sync.Once
	credentialManagerInit sync.Once
	rewrapUseCaseInit     sync.Once
	credentialHandlerInit sync.Once
	tokenServiceInit      sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	background, cancel := context.WithCancel(context.Background())
	return &Container{
		config:           cfg,
		background:       background,
		cancelBackground: cancel,
		initErrors:       make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// lazy runs init once and remembers its error under name.
func (c *Container) lazy(once *sync.Once, name string, init func() error) error {
	once.Do(func() {
		if err := init(); err != nil {
			c.initErrors[name] = err
		}
	})
	return c.initErrors[name]
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	err := c.lazy(&c.dbInit, "db", func() error {
		var err error
		c.db, err = c.initDB()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.db, nil
}

// RedisClient returns the Redis client used by the redis storage driver.
func (c *Container) RedisClient() (*redis.Client, error) {
	err := c.lazy(&c.redisClientInit, "redisClient", func() error {
		var err error
		c.redisClient, err = c.initRedisClient()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.redisClient, nil
}

// TxManager returns the transaction manager. Storage drivers without SQL
// transactions get a manager that runs the function directly.
func (c *Container) TxManager() (database.TxManager, error) {
	err := c.lazy(&c.txManagerInit, "txManager", func() error {
		var err error
		c.txManager, err = c.initTxManager()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	err := c.lazy(&c.metricsProviderInit, "metricsProvider", func() error {
		var err error
		c.metricsProvider, err = c.initMetricsProvider()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the operation metrics recorder.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	err := c.lazy(&c.businessMetricsInit, "businessMetrics", func() error {
		var err error
		c.businessMetrics, err = c.initBusinessMetrics()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance with its router set up.
func (c *Container) HTTPServer() (*http.Server, error) {
	err := c.lazy(&c.httpServerInit, "httpServer", func() error {
		var err error
		c.httpServer, err = c.initHTTPServer()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	err := c.lazy(&c.metricsServerInit, "metricsServer", func() error {
		var err error
		c.metricsServer, err = c.initMetricsServer()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelBackground()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.cacheMetricsRegister != nil {
		if err := c.cacheMetricsRegister.Unregister(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cache metrics unregister: %w", err))
		}
	}

	if c.credentialManager != nil {
		c.credentialManager.Close()
	}

	if c.keyring != nil {
		c.keyring.Close()
	}

	if c.kmsKeeper != nil {
		if err := c.kmsKeeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("kms keeper close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(shutdownErrors...))
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB connects to the SQL backend named by STORAGE_DRIVER.
func (c *Container) initDB() (*sql.DB, error) {
	switch c.config.StorageDriver {
	case config.StoragePostgres, config.StorageMySQL:
	default:
		return nil, fmt.Errorf("storage driver %q has no SQL database", c.config.StorageDriver)
	}

	db, err := database.Connect(context.Background(), database.Config{
		Driver:             c.config.StorageDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	switch c.config.StorageDriver {
	case config.StoragePostgres, config.StorageMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
		}
		return database.NewTxManager(db), nil
	default:
		return database.NewNoopTxManager(), nil
	}
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	handler, err := c.CredentialHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential handler for http server: %w", err)
	}

	storage, err := c.storagePinger()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(storage, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(c.background, c.config, handler, c.TokenService(), provider)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
