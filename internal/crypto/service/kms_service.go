package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens KMS keepers and wraps data keys with them.
type KMSService interface {
	// OpenKeeper opens a keeper for the provider selected by the URI scheme.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
	// GenerateWrappedKey creates a random data key and returns it encrypted by keeper,
	// base64 encoded in the ENCRYPTION_KEYS entry format.
	GenerateWrappedKey(ctx context.Context, keeper cryptoDomain.KMSKeeper) (string, error)
}

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper supports gcpkms://, awskms://, azurekeyvault://, hashivault:// and base64key://.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// GenerateWrappedKey draws a 32-byte key, encrypts it with keeper and zeroes the plaintext.
func (k *kmsService) GenerateWrappedKey(ctx context.Context, keeper cryptoDomain.KMSKeeper) (string, error) {
	key := make([]byte, cryptoDomain.KeySize)
	defer cryptoDomain.Zero(key)

	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt encryption key with KMS: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
