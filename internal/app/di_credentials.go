package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	authService "github.com/allisson/credentials/internal/auth/service"
	"github.com/allisson/credentials/internal/config"
	credentialsHTTP "github.com/allisson/credentials/internal/credentials/http"
	credentialsRepository "github.com/allisson/credentials/internal/credentials/repository"
	credentialsUsecase "github.com/allisson/credentials/internal/credentials/usecase"
	"github.com/allisson/credentials/internal/http"
	"github.com/allisson/credentials/internal/metrics"
)

// CredentialStorage returns the storage backend selected by STORAGE_DRIVER.
func (c *Container) CredentialStorage() (credentialsUsecase.CredentialStorage, error) {
	err := c.lazy(&c.credentialStorageInit, "credentialStorage", func() error {
		var err error
		c.credentialStorage, err = c.initCredentialStorage()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.credentialStorage, nil
}

// CredentialManager returns the credential manager, instrumented when metrics are enabled.
func (c *Container) CredentialManager() (credentialsUsecase.CredentialManager, error) {
	err := c.lazy(&c.credentialManagerInit, "credentialManager", func() error {
		var err error
		c.credentialManager, err = c.initCredentialManager()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.credentialManager, nil
}

// RewrapUseCase returns the use case that re-seals credentials with the active key.
func (c *Container) RewrapUseCase() (credentialsUsecase.RewrapUseCase, error) {
	err := c.lazy(&c.rewrapUseCaseInit, "rewrapUseCase", func() error {
		var err error
		c.rewrapUseCase, err = c.initRewrapUseCase()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.rewrapUseCase, nil
}

// CredentialHandler returns the credential HTTP handler.
func (c *Container) CredentialHandler() (*credentialsHTTP.CredentialHandler, error) {
	err := c.lazy(&c.credentialHandlerInit, "credentialHandler", func() error {
		manager, err := c.CredentialManager()
		if err != nil {
			return fmt.Errorf("failed to get credential manager for credential handler: %w", err)
		}
		c.credentialHandler = credentialsHTTP.NewCredentialHandler(manager, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.credentialHandler, nil
}

// TokenService returns the API token service.
func (c *Container) TokenService() authService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = authService.NewTokenService()
	})
	return c.tokenService
}

func (c *Container) initRedisClient() (*redis.Client, error) {
	client, err := credentialsRepository.NewRedisClient(
		context.Background(),
		c.config.RedisAddr,
		c.config.RedisPassword,
		c.config.RedisDB,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Container) initCredentialStorage() (credentialsUsecase.CredentialStorage, error) {
	switch c.config.StorageDriver {
	case config.StorageMemory:
		c.Logger().Warn("using in-memory credential storage, credentials are lost on restart")
		return credentialsRepository.NewMemoryCredentialRepository(), nil
	case config.StoragePostgres:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for credential storage: %w", err)
		}
		return credentialsRepository.NewPostgreSQLCredentialRepository(db), nil
	case config.StorageMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for credential storage: %w", err)
		}
		return credentialsRepository.NewMySQLCredentialRepository(db), nil
	case config.StorageRedis:
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for credential storage: %w", err)
		}
		return credentialsRepository.NewRedisCredentialRepository(client, c.config.RedisKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", c.config.StorageDriver)
	}
}

// storagePinger returns what the readiness endpoint pings for the configured driver.
func (c *Container) storagePinger() (http.StoragePinger, error) {
	switch c.config.StorageDriver {
	case config.StoragePostgres, config.StorageMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		storage, err := c.CredentialStorage()
		if err != nil {
			return nil, err
		}
		pinger, ok := storage.(http.StoragePinger)
		if !ok {
			return nil, fmt.Errorf("storage driver %s cannot be pinged", c.config.StorageDriver)
		}
		return pinger, nil
	}
}

func (c *Container) initCredentialManager() (credentialsUsecase.CredentialManager, error) {
	logger := c.Logger()

	storage, err := c.CredentialStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential storage for credential manager: %w", err)
	}

	sealer, err := c.Sealer()
	if err != nil {
		return nil, fmt.Errorf("failed to get sealer for credential manager: %w", err)
	}

	managerConfig, err := c.config.ManagerConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid credential manager configuration: %w", err)
	}

	manager, err := credentialsUsecase.NewCredentialManagerBuilder().
		WithStorage(storage, sealer).
		ManagerConfig(managerConfig).
		Logger(logger).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build credential manager: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for credential manager: %w", err)
	}
	if provider == nil {
		return manager, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for credential manager: %w", err)
	}

	c.cacheMetricsRegister, err = metrics.RegisterCacheMetrics(
		provider.MeterProvider(),
		c.config.MetricsNamespace,
		func() (metrics.CacheSnapshot, bool) {
			stats, ok := manager.CacheStats()
			return metrics.CacheSnapshot{
				Hits:        stats.Hits,
				Misses:      stats.Misses,
				Evictions:   stats.Evictions,
				Size:        stats.Size,
				MaxCapacity: stats.MaxCapacity,
			}, ok
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}

	logger.Debug("credential manager instrumented", slog.String("namespace", c.config.MetricsNamespace))
	return credentialsUsecase.NewCredentialManagerWithMetrics(manager, businessMetrics), nil
}

func (c *Container) initRewrapUseCase() (credentialsUsecase.RewrapUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rewrap use case: %w", err)
	}

	storage, err := c.CredentialStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential storage for rewrap use case: %w", err)
	}

	sealer, err := c.Sealer()
	if err != nil {
		return nil, fmt.Errorf("failed to get sealer for rewrap use case: %w", err)
	}

	return credentialsUsecase.NewRewrapUseCase(txManager, storage, sealer, c.Logger()), nil
}
