package domain

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseKeeper is a KMSKeeper that reverses bytes.
type reverseKeeper struct {
	failDecrypt bool
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

func (k *reverseKeeper) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	return reverse(plaintext), nil
}

func (k *reverseKeeper) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if k.failDecrypt {
		return nil, errors.New("kms unavailable")
	}
	return reverse(ciphertext), nil
}

func (k *reverseKeeper) Close() error { return nil }

func key(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func entry(id string, k []byte) string {
	return id + ":" + base64.StdEncoding.EncodeToString(reverse(k))
}

func TestNewKeyring(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		original := key(1)
		kr, err := NewKeyring("k2", DataKey{ID: "k1", Key: original}, DataKey{ID: "k2", Key: key(2)})
		require.NoError(t, err)

		assert.Equal(t, "k2", kr.ActiveKeyID())
		assert.Equal(t, key(2), kr.Active().Key)
		assert.ElementsMatch(t, []string{"k1", "k2"}, kr.IDs())

		original[0] = 9
		k1, ok := kr.Get("k1")
		require.True(t, ok)
		assert.Equal(t, key(1), k1.Key, "keyring must own a copy")
	})

	t.Run("Error_InvalidKeySize", func(t *testing.T) {
		_, err := NewKeyring("k1", DataKey{ID: "k1", Key: []byte("short")})
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("Error_ActiveNotFound", func(t *testing.T) {
		_, err := NewKeyring("missing", DataKey{ID: "k1", Key: key(1)})
		assert.ErrorIs(t, err, ErrActiveKeyNotFound)
	})

	t.Run("Error_ActiveNotSet", func(t *testing.T) {
		_, err := NewKeyring("", DataKey{ID: "k1", Key: key(1)})
		assert.ErrorIs(t, err, ErrActiveKeyIDNotSet)
	})
}

func TestKeyring_Close(t *testing.T) {
	kr, err := NewKeyring("k1", DataKey{ID: "k1", Key: key(7)})
	require.NoError(t, err)
	held := kr.Active().Key

	kr.Close()

	assert.Equal(t, make([]byte, KeySize), held)
	assert.Empty(t, kr.ActiveKeyID())
	_, ok := kr.Get("k1")
	assert.False(t, ok)
}

func TestLoadKeyring(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		raw     string
		active  string
		keeper  *reverseKeeper
		wantErr error
	}{
		{name: "empty keys", raw: "", active: "k1", keeper: &reverseKeeper{}, wantErr: ErrKeysNotSet},
		{name: "empty active", raw: entry("k1", key(1)), active: "", keeper: &reverseKeeper{}, wantErr: ErrActiveKeyIDNotSet},
		{name: "missing separator", raw: "k1", active: "k1", keeper: &reverseKeeper{}, wantErr: ErrInvalidKeysFormat},
		{name: "bad base64", raw: "k1:***", active: "k1", keeper: &reverseKeeper{}, wantErr: ErrInvalidKeyBase64},
		{name: "wrong size", raw: "k1:" + base64.StdEncoding.EncodeToString([]byte("short")), active: "k1", keeper: &reverseKeeper{}, wantErr: ErrInvalidKeySize},
		{name: "unknown active", raw: entry("k1", key(1)), active: "k2", keeper: &reverseKeeper{}, wantErr: ErrActiveKeyNotFound},
	}

	for _, tt := range tests {
		t.Run("Error_"+tt.name, func(t *testing.T) {
			kr, err := LoadKeyring(ctx, tt.keeper, tt.raw, tt.active)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, kr)
		})
	}

	t.Run("Error_KMSDecryptFails", func(t *testing.T) {
		_, err := LoadKeyring(ctx, &reverseKeeper{failDecrypt: true}, entry("k1", key(1)), "k1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decrypt encryption key k1 with KMS")
	})

	t.Run("Success_MultipleKeys", func(t *testing.T) {
		raw := entry("old", key(1)) + ", " + entry("new", key(2))
		kr, err := LoadKeyring(ctx, &reverseKeeper{}, raw, "new")
		require.NoError(t, err)
		defer kr.Close()

		assert.Equal(t, "new", kr.ActiveKeyID())
		old, ok := kr.Get("old")
		require.True(t, ok)
		assert.Equal(t, key(1), old.Key)
		assert.Equal(t, key(2), kr.Active().Key)
	})
}
