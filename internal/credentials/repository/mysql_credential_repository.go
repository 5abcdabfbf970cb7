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

// MySQLCredentialRepository implements credential persistence for MySQL databases.
type MySQLCredentialRepository struct {
	db *sql.DB
}

// Store inserts the credential or overwrites the existing row for id.
func (m *MySQLCredentialRepository) Store(
	ctx context.Context,
	id domain.CredentialID,
	encrypted *domain.EncryptedCredential,
	metadata *domain.Metadata,
) error {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO credentials (id, ciphertext, nonce, key_id, algorithm, format_version, metadata, scope, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
			  ciphertext = VALUES(ciphertext),
			  nonce = VALUES(nonce),
			  key_id = VALUES(key_id),
			  algorithm = VALUES(algorithm),
			  format_version = VALUES(format_version),
			  metadata = VALUES(metadata),
			  scope = VALUES(scope),
			  updated_at = VALUES(updated_at)`

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
		metadataJSON,
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
func (m *MySQLCredentialRepository) Retrieve(
	ctx context.Context,
	id domain.CredentialID,
) (*domain.StoredCredential, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ciphertext, nonce, key_id, algorithm, format_version, metadata
			  FROM credentials
			  WHERE id = ?`

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
func (m *MySQLCredentialRepository) Delete(ctx context.Context, id domain.CredentialID) error {
	querier := database.GetTx(ctx, m.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, string(id))
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return nil
}

// List returns ids matching filter ordered by id.
func (m *MySQLCredentialRepository) List(
	ctx context.Context,
	filter *domain.ListFilter,
) ([]domain.CredentialID, error) {
	querier := database.GetTx(ctx, m.db)

	prefix := ""
	if filter != nil {
		prefix = filter.Prefix
	}

	query := `SELECT id, metadata
			  FROM credentials
			  WHERE id LIKE ?
			  ORDER BY id ASC`

	rows, err := querier.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credentials")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanIDs(rows, filter)
}

// NewMySQLCredentialRepository creates a new MySQL credential repository instance.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db}
}
