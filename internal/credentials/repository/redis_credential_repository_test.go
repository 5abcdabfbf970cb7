package repository

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/testutil"
)

func TestNewRedisCredentialRepository(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() {
		_ = client.Close()
	}()

	t.Run("Success_DefaultPrefix", func(t *testing.T) {
		repo := NewRedisCredentialRepository(client, "")
		assert.Equal(t, DefaultRedisKeyPrefix+"cred:abc", repo.credentialKey("abc"))
		assert.Equal(t, DefaultRedisKeyPrefix+"index", repo.indexKey())
	})

	t.Run("Success_CustomPrefix", func(t *testing.T) {
		repo := NewRedisCredentialRepository(client, "tenant-a:")
		assert.Equal(t, "tenant-a:cred:abc", repo.credentialKey("abc"))
	})
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "127.0.0.1:1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRedisCredentialRepository_Integration(t *testing.T) {
	testutil.SkipIfNoRedis(t)

	const prefix = "credentials-test:"
	client := testutil.SetupRedis(t, prefix)
	repo := NewRedisCredentialRepository(client, prefix)

	runStorageContract(t, repo)

	t.Run("Success_DanglingIndexEntryIsSkipped", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, client.ZAdd(ctx, repo.indexKey(), redis.Z{Member: "ghost"}).Err())

		ids, err := repo.List(ctx, &domain.ListFilter{Prefix: "gh", Tags: []string{"ci"}})
		require.NoError(t, err)
		assert.Equal(t, []domain.CredentialID{"github-token"}, ids)
	})
}
