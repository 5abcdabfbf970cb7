package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credentials/internal/credentials/domain"
	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
	cryptoService "github.com/allisson/credentials/internal/crypto/service"
)

func randomKey(t *testing.T, id string) cryptoDomain.DataKey {
	t.Helper()
	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return cryptoDomain.DataKey{ID: id, Key: key}
}

func newAEADSealer(
	t *testing.T,
	alg cryptoDomain.Algorithm,
	activeID string,
	keys ...cryptoDomain.DataKey,
) *AEADSealer {
	t.Helper()
	keyring, err := cryptoDomain.NewKeyring(activeID, keys...)
	require.NoError(t, err)
	t.Cleanup(keyring.Close)

	sealer, err := NewAEADSealer(keyring, cryptoService.NewAEADManager(), alg)
	require.NoError(t, err)
	return sealer
}

func openLocalKeeper(t *testing.T) cryptoDomain.KMSKeeper {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	keeper, err := cryptoService.NewKMSService().
		OpenKeeper(context.Background(), "base64key://"+base64.URLEncoding.EncodeToString(key))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, keeper.Close())
	})
	return keeper
}

func TestAEADSealer(t *testing.T) {
	ctx := context.Background()

	for _, alg := range []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20} {
		t.Run("Success_RoundTrip_"+string(alg), func(t *testing.T) {
			sealer := newAEADSealer(t, alg, "k1", randomKey(t, "k1"))

			encrypted, err := sealer.Seal(ctx, []byte("s3cr3t"), []byte("db-password"))
			require.NoError(t, err)
			assert.Equal(t, domain.CurrentFormatVersion, encrypted.FormatVersion)
			assert.Equal(t, "k1", encrypted.KeyID)
			assert.Equal(t, string(alg), encrypted.Algorithm)
			assert.NotContains(t, string(encrypted.Ciphertext), "s3cr3t")

			plaintext, err := sealer.Open(ctx, encrypted, []byte("db-password"))
			require.NoError(t, err)
			assert.Equal(t, []byte("s3cr3t"), plaintext)
		})
	}

	t.Run("Error_AADMismatch", func(t *testing.T) {
		sealer := newAEADSealer(t, cryptoDomain.AESGCM, "k1", randomKey(t, "k1"))

		encrypted, err := sealer.Seal(ctx, []byte("s3cr3t"), []byte("a"))
		require.NoError(t, err)

		_, err = sealer.Open(ctx, encrypted, []byte("b"))
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Success_OpensWithPreviousKey", func(t *testing.T) {
		k1 := randomKey(t, "k1")
		k2 := randomKey(t, "k2")
		old := newAEADSealer(t, cryptoDomain.AESGCM, "k1", k1)
		rotated := newAEADSealer(t, cryptoDomain.ChaCha20, "k2", k1, k2)

		encrypted, err := old.Seal(ctx, []byte("s3cr3t"), []byte("id"))
		require.NoError(t, err)
		assert.True(t, rotated.NeedsRewrap(encrypted))
		assert.False(t, old.NeedsRewrap(encrypted))

		plaintext, err := rotated.Open(ctx, encrypted, []byte("id"))
		require.NoError(t, err)
		assert.Equal(t, []byte("s3cr3t"), plaintext)

		resealed, err := rotated.Seal(ctx, plaintext, []byte("id"))
		require.NoError(t, err)
		assert.False(t, rotated.NeedsRewrap(resealed))
	})

	t.Run("Error_KeyNotFound", func(t *testing.T) {
		sealer := newAEADSealer(t, cryptoDomain.AESGCM, "k1", randomKey(t, "k1"))

		_, err := sealer.Open(ctx, &domain.EncryptedCredential{
			FormatVersion: domain.CurrentFormatVersion,
			KeyID:         "gone",
			Algorithm:     string(cryptoDomain.AESGCM),
		}, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
	})

	t.Run("Error_UnsupportedFormatVersion", func(t *testing.T) {
		sealer := newAEADSealer(t, cryptoDomain.AESGCM, "k1", randomKey(t, "k1"))

		_, err := sealer.Open(ctx, &domain.EncryptedCredential{FormatVersion: 9, KeyID: "k1"}, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedFormatVersion)
	})

	t.Run("Error_UnsupportedAlgorithm", func(t *testing.T) {
		sealer := newAEADSealer(t, cryptoDomain.AESGCM, "k1", randomKey(t, "k1"))

		_, err := sealer.Open(ctx, &domain.EncryptedCredential{
			FormatVersion: domain.CurrentFormatVersion,
			KeyID:         "k1",
			Algorithm:     "rot13",
		}, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedAlgorithm)
	})

	t.Run("Error_NewWithKMSAlgorithm", func(t *testing.T) {
		keyring, err := cryptoDomain.NewKeyring("k1", randomKey(t, "k1"))
		require.NoError(t, err)

		_, err = NewAEADSealer(keyring, cryptoService.NewAEADManager(), cryptoDomain.KMS)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedAlgorithm)
	})
}

func TestKeeperSealer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoundTrip", func(t *testing.T) {
		sealer := NewKeeperSealer(openLocalKeeper(t))

		encrypted, err := sealer.Seal(ctx, []byte("s3cr3t"), []byte("db-password"))
		require.NoError(t, err)
		assert.Equal(t, string(cryptoDomain.KMS), encrypted.Algorithm)
		assert.Equal(t, keeperKeyID, encrypted.KeyID)
		assert.Empty(t, encrypted.Nonce)
		assert.False(t, sealer.NeedsRewrap(encrypted))

		plaintext, err := sealer.Open(ctx, encrypted, []byte("db-password"))
		require.NoError(t, err)
		assert.Equal(t, []byte("s3cr3t"), plaintext)
	})

	t.Run("Success_EmptyPlaintext", func(t *testing.T) {
		sealer := NewKeeperSealer(openLocalKeeper(t))

		encrypted, err := sealer.Seal(ctx, nil, []byte("id"))
		require.NoError(t, err)

		plaintext, err := sealer.Open(ctx, encrypted, []byte("id"))
		require.NoError(t, err)
		assert.Empty(t, plaintext)
	})

	t.Run("Error_AADMismatch", func(t *testing.T) {
		sealer := NewKeeperSealer(openLocalKeeper(t))

		encrypted, err := sealer.Seal(ctx, []byte("s3cr3t"), []byte("a"))
		require.NoError(t, err)

		_, err = sealer.Open(ctx, encrypted, []byte("ab"))
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_OtherKeeper", func(t *testing.T) {
		encrypted, err := NewKeeperSealer(openLocalKeeper(t)).Seal(ctx, []byte("s3cr3t"), nil)
		require.NoError(t, err)

		_, err = NewKeeperSealer(openLocalKeeper(t)).Open(ctx, encrypted, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_LocalPayload", func(t *testing.T) {
		sealer := NewKeeperSealer(openLocalKeeper(t))
		local := &domain.EncryptedCredential{
			FormatVersion: domain.CurrentFormatVersion,
			Algorithm:     string(cryptoDomain.AESGCM),
		}

		assert.True(t, sealer.NeedsRewrap(local))
		_, err := sealer.Open(ctx, local, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedAlgorithm)
	})
}
