// Package service provides the sealers that encrypt credential payloads before they
// reach storage: a local AEAD sealer backed by a KMS-unwrapped keyring, and a sealer
// that delegates every payload to the KMS keeper.
package service

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/allisson/credentials/internal/credentials/domain"
	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
	cryptoService "github.com/allisson/credentials/internal/crypto/service"
)

// AEADSealer seals payloads locally with the keyring's active data key.
type AEADSealer struct {
	keyring     *cryptoDomain.Keyring
	aeadManager cryptoService.AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewAEADSealer creates a sealer that writes with algorithm and the active key.
func NewAEADSealer(
	keyring *cryptoDomain.Keyring,
	aeadManager cryptoService.AEADManager,
	algorithm cryptoDomain.Algorithm,
) (*AEADSealer, error) {
	if _, err := cryptoDomain.ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	return &AEADSealer{keyring: keyring, aeadManager: aeadManager, algorithm: algorithm}, nil
}

// Seal encrypts plaintext bound to aad.
func (s *AEADSealer) Seal(_ context.Context, plaintext, aad []byte) (*domain.EncryptedCredential, error) {
	key := s.keyring.Active()
	if key == nil {
		return nil, cryptoDomain.ErrActiveKeyNotFound
	}

	cipher, err := s.aeadManager.CreateCipher(key.Key, s.algorithm)
	if err != nil {
		return nil, err
	}
	ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
	if err != nil {
		return nil, err
	}

	return &domain.EncryptedCredential{
		FormatVersion: domain.CurrentFormatVersion,
		KeyID:         key.ID,
		Algorithm:     string(s.algorithm),
		Ciphertext:    ciphertext,
		Nonce:         nonce,
	}, nil
}

// Open decrypts with the key and algorithm recorded on the payload, so payloads
// written before a key or algorithm change still open.
func (s *AEADSealer) Open(_ context.Context, encrypted *domain.EncryptedCredential, aad []byte) ([]byte, error) {
	if encrypted.FormatVersion != domain.CurrentFormatVersion {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnsupportedFormatVersion, encrypted.FormatVersion)
	}
	alg, err := cryptoDomain.ParseAlgorithm(encrypted.Algorithm)
	if err != nil {
		return nil, err
	}
	key, ok := s.keyring.Get(encrypted.KeyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrKeyNotFound, encrypted.KeyID)
	}

	cipher, err := s.aeadManager.CreateCipher(key.Key, alg)
	if err != nil {
		return nil, err
	}
	return cipher.Decrypt(encrypted.Ciphertext, encrypted.Nonce, aad)
}

// NeedsRewrap reports whether the payload was sealed with anything other than
// the active key and configured algorithm.
func (s *AEADSealer) NeedsRewrap(encrypted *domain.EncryptedCredential) bool {
	return encrypted.KeyID != s.keyring.ActiveKeyID() || encrypted.Algorithm != string(s.algorithm)
}

// keeperKeyID is recorded as the key id of payloads sealed by the KMS keeper.
const keeperKeyID = "kms"

// KeeperSealer sends every payload to the KMS keeper. Keepers take no associated
// data, so the aad is framed inside the plaintext and checked on Open.
type KeeperSealer struct {
	keeper cryptoDomain.KMSKeeper
}

// NewKeeperSealer creates a sealer backed by keeper.
func NewKeeperSealer(keeper cryptoDomain.KMSKeeper) *KeeperSealer {
	return &KeeperSealer{keeper: keeper}
}

// Seal encrypts uint32(len(aad)) || aad || plaintext with the keeper.
func (s *KeeperSealer) Seal(ctx context.Context, plaintext, aad []byte) (*domain.EncryptedCredential, error) {
	framed := make([]byte, 4+len(aad)+len(plaintext))
	defer cryptoDomain.Zero(framed)

	binary.BigEndian.PutUint32(framed, uint32(len(aad)))
	copy(framed[4:], aad)
	copy(framed[4+len(aad):], plaintext)

	ciphertext, err := s.keeper.Encrypt(ctx, framed)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt with KMS: %w", err)
	}

	return &domain.EncryptedCredential{
		FormatVersion: domain.CurrentFormatVersion,
		KeyID:         keeperKeyID,
		Algorithm:     string(cryptoDomain.KMS),
		Ciphertext:    ciphertext,
	}, nil
}

// Open decrypts with the keeper and verifies the framed aad.
func (s *KeeperSealer) Open(ctx context.Context, encrypted *domain.EncryptedCredential, aad []byte) ([]byte, error) {
	if encrypted.FormatVersion != domain.CurrentFormatVersion {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnsupportedFormatVersion, encrypted.FormatVersion)
	}
	if encrypted.Algorithm != string(cryptoDomain.KMS) {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	framed, err := s.keeper.Decrypt(ctx, encrypted.Ciphertext)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	defer cryptoDomain.Zero(framed)

	if len(framed) < 4 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	n := int(binary.BigEndian.Uint32(framed))
	if n > len(framed)-4 || subtle.ConstantTimeCompare(framed[4:4+n], aad) != 1 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	plaintext := make([]byte, len(framed)-4-n)
	copy(plaintext, framed[4+n:])
	return plaintext, nil
}

// NeedsRewrap reports whether the payload was sealed by a local data key.
func (s *KeeperSealer) NeedsRewrap(encrypted *domain.EncryptedCredential) bool {
	return encrypted.Algorithm != string(cryptoDomain.KMS)
}
