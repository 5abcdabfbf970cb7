package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/credentials/repository"
	"github.com/allisson/credentials/internal/credentials/usecase"
)

var errAADMismatch = errors.New("aad mismatch")

// xorSealer is a reversible stand-in for an AEAD. The nonce carries the aad so
// Open can reject ciphertexts moved between ids.
type xorSealer struct {
	opens atomic.Int64
}

func (s *xorSealer) Seal(_ context.Context, plaintext, aad []byte) (*domain.EncryptedCredential, error) {
	ciphertext := make([]byte, len(plaintext))
	for i, b := range plaintext {
		ciphertext[i] = b ^ 0x5a
	}
	return &domain.EncryptedCredential{
		FormatVersion: domain.CurrentFormatVersion,
		KeyID:         "test",
		Algorithm:     "xor",
		Ciphertext:    ciphertext,
		Nonce:         bytes.Clone(aad),
	}, nil
}

func (s *xorSealer) Open(_ context.Context, encrypted *domain.EncryptedCredential, aad []byte) ([]byte, error) {
	s.opens.Add(1)
	if !bytes.Equal(encrypted.Nonce, aad) {
		return nil, errAADMismatch
	}
	plaintext := make([]byte, len(encrypted.Ciphertext))
	for i, b := range encrypted.Ciphertext {
		plaintext[i] = b ^ 0x5a
	}
	return plaintext, nil
}

// slowStorage delays every call to the wrapped storage.
type slowStorage struct {
	usecase.CredentialStorage
	delay     time.Duration
	retrieves atomic.Int64
}

func (s *slowStorage) Retrieve(ctx context.Context, id domain.CredentialID) (*domain.StoredCredential, error) {
	s.retrieves.Add(1)
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.CredentialStorage.Retrieve(ctx, id)
}

func (s *slowStorage) Store(
	ctx context.Context,
	id domain.CredentialID,
	encrypted *domain.EncryptedCredential,
	metadata *domain.Metadata,
) error {
	time.Sleep(s.delay)
	return s.CredentialStorage.Store(ctx, id, encrypted, metadata)
}

// fakeClock is a settable time source.
type fakeClock struct {
	now atomic.Int64
}

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.now.Store(t.UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.now.Load()).UTC()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}

func newMemoryManager(t *testing.T, configure func(*usecase.CredentialManagerBuilder)) (usecase.CredentialManager, *repository.MemoryCredentialRepository) {
	t.Helper()

	storage := repository.NewMemoryCredentialRepository()
	builder := usecase.NewCredentialManagerBuilder().WithStorage(storage, &xorSealer{})
	if configure != nil {
		configure(builder)
	}
	manager, err := builder.Build()
	require.NoError(t, err)
	t.Cleanup(manager.Close)
	return manager, storage
}

func secret(value string) *domain.Credential {
	return domain.NewCredential([]byte(value))
}

func scopeOf(t *testing.T, raw string) domain.ScopeID {
	t.Helper()
	scope, err := domain.NewScopeID(raw)
	require.NoError(t, err)
	return scope
}
