package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/credentials/internal/credentials/domain"
	apperrors "github.com/allisson/credentials/internal/errors"
)

// DefaultRedisKeyPrefix namespaces every key written by the Redis repository.
const DefaultRedisKeyPrefix = "credentials:"

const (
	fieldCiphertext    = "ciphertext"
	fieldNonce         = "nonce"
	fieldKeyID         = "key_id"
	fieldAlgorithm     = "algorithm"
	fieldFormatVersion = "format_version"
	fieldMetadata      = "metadata"
)

// RedisCredentialRepository stores each credential as a hash and keeps a
// lexicographically ordered sorted set of ids for listing.
type RedisCredentialRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisCredentialRepository creates a repository using prefix for every key.
func NewRedisCredentialRepository(client *redis.Client, prefix string) *RedisCredentialRepository {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisCredentialRepository{client: client, prefix: prefix}
}

func (r *RedisCredentialRepository) credentialKey(id domain.CredentialID) string {
	return r.prefix + "cred:" + string(id)
}

func (r *RedisCredentialRepository) indexKey() string {
	return r.prefix + "index"
}

// Store writes the hash and the index entry in one transaction.
func (r *RedisCredentialRepository) Store(
	ctx context.Context,
	id domain.CredentialID,
	encrypted *domain.EncryptedCredential,
	metadata *domain.Metadata,
) error {
	metadataJSON, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	key := r.credentialKey(id)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]any{
			fieldCiphertext:    encrypted.Ciphertext,
			fieldNonce:         encrypted.Nonce,
			fieldKeyID:         encrypted.KeyID,
			fieldAlgorithm:     encrypted.Algorithm,
			fieldFormatVersion: strconv.FormatUint(uint64(encrypted.FormatVersion), 10),
			fieldMetadata:      metadataJSON,
		})
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: 0, Member: string(id)})
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to store credential")
	}
	return nil
}

// Retrieve returns the hash for id or domain.ErrCredentialNotFound.
func (r *RedisCredentialRepository) Retrieve(
	ctx context.Context,
	id domain.CredentialID,
) (*domain.StoredCredential, error) {
	fields, err := r.client.HGetAll(ctx, r.credentialKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}
	if len(fields) == 0 {
		return nil, domain.ErrCredentialNotFound
	}

	version, err := strconv.ParseUint(fields[fieldFormatVersion], 10, 16)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse credential format version")
	}
	metadata, err := decodeMetadata([]byte(fields[fieldMetadata]))
	if err != nil {
		return nil, err
	}

	return &domain.StoredCredential{
		Encrypted: &domain.EncryptedCredential{
			FormatVersion: uint16(version),
			KeyID:         fields[fieldKeyID],
			Algorithm:     fields[fieldAlgorithm],
			Ciphertext:    []byte(fields[fieldCiphertext]),
			Nonce:         []byte(fields[fieldNonce]),
		},
		Metadata: metadata,
	}, nil
}

// PingContext checks the Redis connection.
func (r *RedisCredentialRepository) PingContext(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Delete removes the hash and the index entry. Missing ids are ignored.
func (r *RedisCredentialRepository) Delete(ctx context.Context, id domain.CredentialID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.credentialKey(id))
		pipe.ZRem(ctx, r.indexKey(), string(id))
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return nil
}

// List walks the id index by prefix and loads metadata only when tags are filtered.
func (r *RedisCredentialRepository) List(
	ctx context.Context,
	filter *domain.ListFilter,
) ([]domain.CredentialID, error) {
	rangeBy := &redis.ZRangeBy{Min: "-", Max: "+"}
	if filter != nil && filter.Prefix != "" {
		rangeBy = &redis.ZRangeBy{Min: "[" + filter.Prefix, Max: "[" + filter.Prefix + "\xff"}
	}

	members, err := r.client.ZRangeByLex(ctx, r.indexKey(), rangeBy).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}

	if filter == nil || len(filter.Tags) == 0 {
		ids := make([]domain.CredentialID, 0, len(members))
		for _, m := range members {
			ids = append(ids, domain.CredentialID(m))
		}
		return applyLimit(ids, filter), nil
	}

	cmds := make([]*redis.StringCmd, len(members))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, m := range members {
			cmds[i] = pipe.HGet(ctx, r.credentialKey(domain.CredentialID(m)), fieldMetadata)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperrors.Wrap(err, "failed to load credential metadata")
	}

	ids := make([]domain.CredentialID, 0, len(members))
	for i, m := range members {
		raw, err := cmds[i].Result()
		if err != nil {
			// index entry without a hash
			continue
		}
		metadata, err := decodeMetadata([]byte(raw))
		if err != nil {
			return nil, err
		}
		id := domain.CredentialID(m)
		if filter.Matches(id, &metadata) {
			ids = append(ids, id)
		}
	}
	return applyLimit(ids, filter), nil
}
