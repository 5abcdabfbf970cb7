// Package repository implements credential persistence for in-memory, PostgreSQL,
// MySQL and Redis backends.
package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/allisson/credentials/internal/credentials/domain"
)

type memoryRecord struct {
	encrypted domain.EncryptedCredential
	metadata  domain.Metadata
}

// MemoryCredentialRepository keeps sealed credentials in process memory.
// It is intended for tests and single-process deployments.
type MemoryCredentialRepository struct {
	mu      sync.RWMutex
	records map[domain.CredentialID]memoryRecord
}

// NewMemoryCredentialRepository creates an empty in-memory repository.
func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{records: make(map[domain.CredentialID]memoryRecord)}
}

// Store creates or overwrites the record for id.
func (r *MemoryCredentialRepository) Store(
	ctx context.Context,
	id domain.CredentialID,
	encrypted *domain.EncryptedCredential,
	metadata *domain.Metadata,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var meta domain.Metadata
	if metadata != nil {
		meta = metadata.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[id] = memoryRecord{
		encrypted: copyEncrypted(encrypted),
		metadata:  meta,
	}
	return nil
}

// Retrieve returns a copy of the record for id.
func (r *MemoryCredentialRepository) Retrieve(
	ctx context.Context,
	id domain.CredentialID,
) (*domain.StoredCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	encrypted := copyEncrypted(&record.encrypted)
	return &domain.StoredCredential{Encrypted: &encrypted, Metadata: record.metadata.Clone()}, nil
}

// Delete removes the record for id. Missing ids are ignored.
func (r *MemoryCredentialRepository) Delete(ctx context.Context, id domain.CredentialID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	return nil
}

// List returns the ids matching filter in ascending order.
func (r *MemoryCredentialRepository) List(
	ctx context.Context,
	filter *domain.ListFilter,
) ([]domain.CredentialID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	ids := make([]domain.CredentialID, 0, len(r.records))
	for id, record := range r.records {
		if filter.Matches(id, &record.metadata) {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return applyLimit(ids, filter), nil
}

// PingContext always succeeds unless ctx is done.
func (r *MemoryCredentialRepository) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored credentials.
func (r *MemoryCredentialRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func copyEncrypted(e *domain.EncryptedCredential) domain.EncryptedCredential {
	if e == nil {
		return domain.EncryptedCredential{}
	}
	return domain.EncryptedCredential{
		FormatVersion: e.FormatVersion,
		KeyID:         e.KeyID,
		Algorithm:     e.Algorithm,
		Ciphertext:    slices.Clone(e.Ciphertext),
		Nonce:         slices.Clone(e.Nonce),
	}
}

func applyLimit(ids []domain.CredentialID, filter *domain.ListFilter) []domain.CredentialID {
	if filter != nil && filter.Limit > 0 && len(ids) > filter.Limit {
		return ids[:filter.Limit]
	}
	return ids
}
