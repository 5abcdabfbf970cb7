package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/credentials/usecase"
)

func newEncrypted(payload string) *domain.EncryptedCredential {
	return &domain.EncryptedCredential{
		FormatVersion: domain.CurrentFormatVersion,
		KeyID:         "key-1",
		Algorithm:     "aes-gcm",
		Ciphertext:    []byte(payload),
		Nonce:         []byte("nonce-123456"),
	}
}

func newMetadata(scope string, tags ...string) *domain.Metadata {
	now := time.Now().UTC().Truncate(time.Microsecond)
	meta := &domain.Metadata{CreatedAt: now, LastAccessedAt: now, Tags: domain.NormalizeTags(tags)}
	if scope != "" {
		s := domain.MustScopeID(scope)
		meta.Scope = &s
	}
	return meta
}

// runStorageContract exercises the behaviour every CredentialStorage backend shares.
func runStorageContract(t *testing.T, storage usecase.CredentialStorage) {
	t.Helper()
	ctx := context.Background()

	t.Run("Success_StoreAndRetrieve", func(t *testing.T) {
		meta := newMetadata("env:prod/service:github", "ci")
		require.NoError(t, storage.Store(ctx, "github-token", newEncrypted("sealed"), meta))

		stored, err := storage.Retrieve(ctx, "github-token")
		require.NoError(t, err)
		assert.Equal(t, []byte("sealed"), stored.Encrypted.Ciphertext)
		assert.Equal(t, []byte("nonce-123456"), stored.Encrypted.Nonce)
		assert.Equal(t, "key-1", stored.Encrypted.KeyID)
		assert.Equal(t, "aes-gcm", stored.Encrypted.Algorithm)
		assert.Equal(t, domain.CurrentFormatVersion, stored.Encrypted.FormatVersion)
		assert.Equal(t, []string{"ci"}, stored.Metadata.Tags)
		require.NotNil(t, stored.Metadata.Scope)
		assert.Equal(t, "env:prod/service:github", stored.Metadata.Scope.String())
		assert.True(t, meta.CreatedAt.Equal(stored.Metadata.CreatedAt))
	})

	t.Run("Success_Overwrite", func(t *testing.T) {
		require.NoError(t, storage.Store(ctx, "overwrite", newEncrypted("v1"), newMetadata("")))
		require.NoError(t, storage.Store(ctx, "overwrite", newEncrypted("v2"), newMetadata("")))

		stored, err := storage.Retrieve(ctx, "overwrite")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), stored.Encrypted.Ciphertext)
		assert.Nil(t, stored.Metadata.Scope)
	})

	t.Run("Error_RetrieveMissing", func(t *testing.T) {
		_, err := storage.Retrieve(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})

	t.Run("Success_DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, storage.Store(ctx, "to-delete", newEncrypted("x"), newMetadata("")))
		require.NoError(t, storage.Delete(ctx, "to-delete"))
		require.NoError(t, storage.Delete(ctx, "to-delete"))

		_, err := storage.Retrieve(ctx, "to-delete")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})

	t.Run("Success_ListFilters", func(t *testing.T) {
		require.NoError(t, storage.Store(ctx, "app_b", newEncrypted("x"), newMetadata("", "db")))
		require.NoError(t, storage.Store(ctx, "app_a", newEncrypted("x"), newMetadata("", "db", "prod")))
		require.NoError(t, storage.Store(ctx, "appXc", newEncrypted("x"), newMetadata("")))

		ids, err := storage.List(ctx, &domain.ListFilter{Prefix: "app_"})
		require.NoError(t, err)
		assert.Equal(t, []domain.CredentialID{"app_a", "app_b"}, ids)

		ids, err = storage.List(ctx, &domain.ListFilter{Prefix: "app", Tags: []string{"prod"}})
		require.NoError(t, err)
		assert.Equal(t, []domain.CredentialID{"app_a"}, ids)

		ids, err = storage.List(ctx, &domain.ListFilter{Prefix: "app", Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []domain.CredentialID{"appXc", "app_a"}, ids)

		ids, err = storage.List(ctx, nil)
		require.NoError(t, err)
		assert.Contains(t, ids, domain.CredentialID("github-token"))
		assert.IsIncreasing(t, ids)
	})
}
