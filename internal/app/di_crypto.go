package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	credentialsService "github.com/allisson/credentials/internal/credentials/service"
	credentialsUsecase "github.com/allisson/credentials/internal/credentials/usecase"
	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
	cryptoService "github.com/allisson/credentials/internal/crypto/service"
)

// errKMSKeyURINotSet is returned when no KMS_KEY_URI is configured.
var errKMSKeyURINotSet = errors.New("KMS_KEY_URI is required")

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KMSKeeper returns the keeper opened from KMS_KEY_URI.
func (c *Container) KMSKeeper() (cryptoDomain.KMSKeeper, error) {
	err := c.lazy(&c.kmsKeeperInit, "kmsKeeper", func() error {
		var err error
		c.kmsKeeper, err = c.initKMSKeeper()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.kmsKeeper, nil
}

// Keyring returns the data keys unwrapped from ENCRYPTION_KEYS.
func (c *Container) Keyring() (*cryptoDomain.Keyring, error) {
	err := c.lazy(&c.keyringInit, "keyring", func() error {
		var err error
		c.keyring, err = c.initKeyring()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.keyring, nil
}

// Sealer returns the sealer selected by ENCRYPTION_ALGORITHM.
func (c *Container) Sealer() (credentialsUsecase.RewrappingSealer, error) {
	err := c.lazy(&c.sealerInit, "sealer", func() error {
		var err error
		c.sealer, err = c.initSealer()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.sealer, nil
}

func (c *Container) initKMSKeeper() (cryptoDomain.KMSKeeper, error) {
	if c.config.KMSKeyURI == "" {
		return nil, errKMSKeyURINotSet
	}
	keeper, err := c.KMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, err
	}
	return keeper, nil
}

func (c *Container) initKeyring() (*cryptoDomain.Keyring, error) {
	keeper, err := c.KMSKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms keeper for keyring: %w", err)
	}

	keyring, err := cryptoDomain.LoadKeyring(
		context.Background(),
		keeper,
		c.config.EncryptionKeys,
		c.config.ActiveEncryptionKeyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption keys: %w", err)
	}

	c.Logger().Info("encryption keys loaded",
		slog.Any("key_ids", keyring.IDs()),
		slog.String("active_key_id", keyring.ActiveKeyID()),
	)
	return keyring, nil
}

// initSealer picks a KMS keeper sealer for "kms" and a keyring-backed AEAD
// sealer otherwise.
func (c *Container) initSealer() (credentialsUsecase.RewrappingSealer, error) {
	algorithm := cryptoDomain.Algorithm(c.config.EncryptionAlgorithm)

	if algorithm == cryptoDomain.KMS {
		keeper, err := c.KMSKeeper()
		if err != nil {
			return nil, fmt.Errorf("failed to get kms keeper for sealer: %w", err)
		}
		return credentialsService.NewKeeperSealer(keeper), nil
	}

	if _, err := cryptoDomain.ParseAlgorithm(string(algorithm)); err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_ALGORITHM %q: %w", c.config.EncryptionAlgorithm, err)
	}

	keyring, err := c.Keyring()
	if err != nil {
		return nil, err
	}

	sealer, err := credentialsService.NewAEADSealer(keyring, c.AEADManager(), algorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}
	return sealer, nil
}
