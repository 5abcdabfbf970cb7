package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/credentials/repository"
	"github.com/allisson/credentials/internal/credentials/service"
	"github.com/allisson/credentials/internal/credentials/usecase"
	"github.com/allisson/credentials/internal/credentials/usecase/mocks"
	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
	cryptoService "github.com/allisson/credentials/internal/crypto/service"
)

func newTestManager(t *testing.T) usecase.CredentialManager {
	t.Helper()

	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	keyring, err := cryptoDomain.NewKeyring("k1", cryptoDomain.DataKey{ID: "k1", Key: key})
	require.NoError(t, err)
	t.Cleanup(keyring.Close)

	sealer, err := service.NewAEADSealer(keyring, cryptoService.NewAEADManager(), cryptoDomain.AESGCM)
	require.NoError(t, err)

	manager, err := usecase.NewCredentialManagerBuilder().
		WithStorage(repository.NewMemoryCredentialRepository(), sealer).
		Build()
	require.NoError(t, err)
	t.Cleanup(manager.Close)
	return manager
}

func store(t *testing.T, manager usecase.CredentialManager, opts StoreOptions) {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, RunStoreCredential(context.Background(), manager, IOTuple{Writer: &out}, opts))
	require.Contains(t, out.String(), "Stored credential "+opts.ID)
}

func TestRunStoreCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_WithMetadata", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{
			ID:               "db_password",
			Value:            "hunter2",
			Tags:             "prod, db,prod",
			ExpiresIn:        24 * time.Hour,
			RotationInterval: time.Hour,
		})

		credential, err := manager.Retrieve(ctx, "db_password")
		require.NoError(t, err)
		require.NotNil(t, credential)
		assert.Equal(t, []byte("hunter2"), credential.Secret)
		assert.Equal(t, []string{"db", "prod"}, credential.Metadata.Tags)
		require.NotNil(t, credential.Metadata.ExpiresAt)
		assert.Equal(t, 24*time.Hour, credential.Metadata.ExpiresAt.Sub(credential.Metadata.CreatedAt))
		require.NotNil(t, credential.Metadata.RotationPolicy)
		assert.Equal(t, int64(3600), credential.Metadata.RotationPolicy.IntervalSeconds)
	})

	t.Run("Success_ReadFromInput", func(t *testing.T) {
		manager := newTestManager(t)
		var out bytes.Buffer
		err := RunStoreCredential(ctx, manager, IOTuple{
			Reader: strings.NewReader("from-stdin\n"),
			Writer: &out,
		}, StoreOptions{ID: "api_key", Value: "-"})
		require.NoError(t, err)

		credential, err := manager.Retrieve(ctx, "api_key")
		require.NoError(t, err)
		require.NotNil(t, credential)
		assert.Equal(t, []byte("from-stdin"), credential.Secret)
	})

	t.Run("Success_Scoped", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "token", Value: "s", Scope: "team:eng"})

		credential, err := manager.RetrieveScoped(ctx, "token", domain.MustScopeID("team:eng"))
		require.NoError(t, err)
		require.NotNil(t, credential)
		assert.Equal(t, "team:eng", credential.Metadata.ScopeString())
	})

	t.Run("Error_ScopeViolation", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "token", Value: "s", Scope: "team:eng"})

		err := RunStoreCredential(ctx, manager, IOTuple{Writer: &bytes.Buffer{}},
			StoreOptions{ID: "token", Value: "s", Scope: "team:ops"})
		assert.ErrorIs(t, err, domain.ErrScopeViolation)
	})

	t.Run("Error_InvalidInput", func(t *testing.T) {
		manager := &mocks.MockCredentialManager{}
		cases := []struct {
			name string
			opts StoreOptions
			want string
		}{
			{"empty id", StoreOptions{Value: "s"}, "invalid credential id"},
			{"bad scope", StoreOptions{ID: "a", Value: "s", Scope: "team::eng"}, "invalid scope"},
			{"empty value", StoreOptions{ID: "a"}, "--value must not be empty"},
			{"empty input", StoreOptions{ID: "a", Value: "-"}, "secret read from input is empty"},
			{"negative expiry", StoreOptions{ID: "a", Value: "s", ExpiresIn: -time.Second}, "must not be negative"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := RunStoreCredential(ctx, manager, IOTuple{
					Reader: strings.NewReader(""),
					Writer: &bytes.Buffer{},
				}, tc.opts)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.want)
			})
		}
		manager.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunGetCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_TextHidesValue", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "db_password", Value: "hunter2", Tags: "db"})

		var out bytes.Buffer
		require.NoError(t, RunGetCredential(ctx, manager, &out, "db_password", "", false, "text"))
		assert.Contains(t, out.String(), "ID:         db_password")
		assert.Contains(t, out.String(), "Tags:       db")
		assert.NotContains(t, out.String(), "hunter2")
	})

	t.Run("Success_TextReveal", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "db_password", Value: "hunter2"})

		var out bytes.Buffer
		require.NoError(t, RunGetCredential(ctx, manager, &out, "db_password", "", true, "text"))
		assert.Contains(t, out.String(), "Value:      hunter2")
	})

	t.Run("Success_JSONReveal", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "db_password", Value: "hunter2", Scope: "org"})

		var out bytes.Buffer
		require.NoError(t, RunGetCredential(ctx, manager, &out, "db_password", "org", true, "json"))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.Equal(t, "db_password", decoded["id"])
		assert.Equal(t, "org", decoded["scope"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hunter2")), decoded["value"])
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		manager := newTestManager(t)
		err := RunGetCredential(ctx, manager, &bytes.Buffer{}, "missing", "", false, "text")
		assert.ErrorContains(t, err, "credential missing not found")
	})

	t.Run("Error_OtherScope", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "token", Value: "s", Scope: "team:eng"})

		err := RunGetCredential(ctx, manager, &bytes.Buffer{}, "token", "team:ops", false, "text")
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("Error_InvalidFormat", func(t *testing.T) {
		err := RunGetCredential(ctx, &mocks.MockCredentialManager{}, &bytes.Buffer{}, "a", "", false, "yaml")
		assert.ErrorContains(t, err, "invalid format")
	})
}

func TestRunDeleteCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "a", Value: "1"})

		var out bytes.Buffer
		require.NoError(t, RunDeleteCredential(ctx, manager, &out, "a", ""))
		assert.Contains(t, out.String(), "Deleted credential a")

		credential, err := manager.Retrieve(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, credential)
	})

	t.Run("Success_ForeignScopeKeepsCredential", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "a", Value: "1", Scope: "team:eng"})

		var out bytes.Buffer
		require.NoError(t, RunDeleteCredential(ctx, manager, &out, "a", "team:ops"))
		assert.Contains(t, out.String(), "not found in scope team:ops")

		credential, err := manager.RetrieveScoped(ctx, "a", domain.MustScopeID("team:eng"))
		require.NoError(t, err)
		assert.NotNil(t, credential)
	})

	t.Run("Success_OwnerScope", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "a", Value: "1", Scope: "team:eng"})

		require.NoError(t, RunDeleteCredential(ctx, manager, &bytes.Buffer{}, "a", "team:eng"))

		ids, err := manager.List(ctx, &domain.ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Error_Storage", func(t *testing.T) {
		manager := &mocks.MockCredentialManager{}
		manager.On("Delete", ctx, domain.CredentialID("a")).Return(errors.New("connection reset")).Once()

		err := RunDeleteCredential(ctx, manager, &bytes.Buffer{}, "a", "")
		assert.ErrorContains(t, err, "connection reset")
		manager.AssertExpectations(t)
	})
}

func TestRunListCredentials(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	store(t, manager, StoreOptions{ID: "db_a", Value: "1", Tags: "prod"})
	store(t, manager, StoreOptions{ID: "db_b", Value: "1"})
	store(t, manager, StoreOptions{ID: "api_key", Value: "1", Scope: "org:team"})

	t.Run("Success_Text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunListCredentials(ctx, manager, &out, "db_", "", 0, "", "text"))
		assert.Equal(t, "db_a\ndb_b\n", out.String())
	})

	t.Run("Success_TagsAndLimit", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunListCredentials(ctx, manager, &out, "", "prod", 1, "", "text"))
		assert.Equal(t, "db_a\n", out.String())
	})

	t.Run("Success_ScopedJSON", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunListCredentials(ctx, manager, &out, "", "", 0, "org", "json"))
		assert.JSONEq(t, `{"data":["api_key"]}`, out.String())
	})

	t.Run("Success_EmptyJSON", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunListCredentials(ctx, manager, &out, "none_", "", 0, "", "json"))
		assert.JSONEq(t, `{"data":[]}`, out.String())
	})

	t.Run("Error_NegativeLimit", func(t *testing.T) {
		err := RunListCredentials(ctx, manager, &bytes.Buffer{}, "", "", -1, "", "text")
		assert.ErrorContains(t, err, "limit must not be negative")
	})
}

func TestRunValidateCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Valid", func(t *testing.T) {
		manager := newTestManager(t)
		store(t, manager, StoreOptions{ID: "a", Value: "1", ExpiresIn: time.Hour})

		var out bytes.Buffer
		require.NoError(t, RunValidateCredential(ctx, manager, &out, "a", "", "text"))
		assert.Equal(t, "a: valid\n", out.String())
	})

	t.Run("Success_NotFound", func(t *testing.T) {
		manager := newTestManager(t)

		var out bytes.Buffer
		require.NoError(t, RunValidateCredential(ctx, manager, &out, "missing", "", "json"))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.Equal(t, "not_found", decoded["status"])
		assert.Equal(t, false, decoded["valid"])
	})

	t.Run("Success_ExpiredWithRotation", func(t *testing.T) {
		expiredAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		manager := &mocks.MockCredentialManager{}
		manager.On("ValidateScoped", ctx, domain.CredentialID("a"), domain.MustScopeID("org")).
			Return(domain.ValidationResult{
				Details: domain.ValidationDetails{
					Status:    domain.ValidationStatusExpired,
					ExpiredAt: expiredAt,
				},
				RotationRecommended: true,
			}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunValidateCredential(ctx, manager, &out, "a", "org", "text"))
		assert.Equal(t, "a: expired (expired at 2024-01-01T00:00:00Z), rotation recommended\n", out.String())
		manager.AssertExpectations(t)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		err := RunValidateCredential(ctx, &mocks.MockCredentialManager{}, &bytes.Buffer{}, "bad id", "", "text")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentialID)
	})
}
