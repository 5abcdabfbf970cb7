package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/database"
	apperrors "github.com/allisson/credentials/internal/errors"
)

// PostgreSQLCredentialRepository implements credential persistence for PostgreSQL databases.
type PostgreSQLCredentialRepository struct {
	db *sql.DB
}

// Store inserts the credential or overwrites the existing row for id.
func (p *PostgreSQLCredentialRepository) Store(
	ctx context.Context,
	id domain.CredentialID,
	encrypted *domain.EncryptedCredential,
	metadata *domain.Metadata,
) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO credentials (id, ciphertext, nonce, key_id, algorithm, format_version, metadata, scope, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (id) DO UPDATE SET
			  ciphertext = EXCLUDED.ciphertext,
			  nonce = EXCLUDED.nonce,
			  key_id = EXCLUDED.key_id,
			  algorithm = EXCLUDED.algorithm,
			  format_version = EXCLUDED.format_version,
			  metadata = EXCLUDED.metadata,
			  scope = EXCLUDED.scope,
			  updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	_, err = querier.ExecContext(
		ctx,
		query,
		string(id),
		encrypted.Ciphertext,
		encrypted.Nonce,
		encrypted.KeyID,
		encrypted.Algorithm,
		encrypted.FormatVersion,
		string(metadataJSON),
		nullableScope(metadata),
		metadata.CreatedAt,
		now,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to store credential")
	}
	return nil
}

// Retrieve returns the row for id or domain.ErrCredentialNotFound.
func (p *PostgreSQLCredentialRepository) Retrieve(
	ctx context.Context,
	id domain.CredentialID,
) (*domain.StoredCredential, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ciphertext, nonce, key_id, algorithm, format_version, metadata
			  FROM credentials
			  WHERE id = $1`

	var (
		encrypted    domain.EncryptedCredential
		metadataJSON []byte
	)
	err := querier.QueryRowContext(ctx, query, string(id)).Scan(
		&encrypted.Ciphertext,
		&encrypted.Nonce,
		&encrypted.KeyID,
		&encrypted.Algorithm,
		&encrypted.FormatVersion,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}

	metadata, err := decodeMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	return &domain.StoredCredential{Encrypted: &encrypted, Metadata: metadata}, nil
}

// Delete removes the row for id. Missing rows are ignored.
func (p *PostgreSQLCredentialRepository) Delete(ctx context.Context, id domain.CredentialID) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, string(id))
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return nil
}

// List returns ids matching filter ordered by id.
func (p *PostgreSQLCredentialRepository) List(
	ctx context.Context,
	filter *domain.ListFilter,
) ([]domain.CredentialID, error) {
	querier := database.GetTx(ctx, p.db)

	prefix := ""
	if filter != nil {
		prefix = filter.Prefix
	}

	query := `SELECT id, metadata
			  FROM credentials
			  WHERE id LIKE $1 ESCAPE '\'
			  ORDER BY id COLLATE "C" ASC`

	rows, err := querier.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanIDs(rows, filter)
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQL credential repository instance.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db}
}

// scanIDs reads (id, metadata) rows and applies the tag filter and limit.
func scanIDs(rows *sql.Rows, filter *domain.ListFilter) ([]domain.CredentialID, error) {
	ids := make([]domain.CredentialID, 0)
	for rows.Next() {
		var (
			id           string
			metadataJSON []byte
		)
		if err := rows.Scan(&id, &metadataJSON); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential")
		}
		metadata, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(domain.CredentialID(id), &metadata) {
			continue
		}
		ids = append(ids, domain.CredentialID(id))
		if filter != nil && filter.Limit > 0 && len(ids) == filter.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate credentials")
	}
	return ids, nil
}
