// Package usecase implements the credential manager: cache-aside reads, write-through
// invalidation, scope isolation and bounded-concurrency batch operations on top of a
// pluggable storage backend and sealer.
package usecase

import (
	"context"

	"github.com/allisson/credentials/internal/credentials/cache"
	"github.com/allisson/credentials/internal/credentials/domain"
)

// CredentialStorage persists sealed credentials. Implementations must be safe for
// concurrent use and enforce their own timeouts.
type CredentialStorage interface {
	// Store creates or overwrites the record for id.
	Store(ctx context.Context, id domain.CredentialID, encrypted *domain.EncryptedCredential, metadata *domain.Metadata) error
	// Retrieve returns domain.ErrCredentialNotFound when id does not exist.
	Retrieve(ctx context.Context, id domain.CredentialID) (*domain.StoredCredential, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id domain.CredentialID) error
	// List returns matching ids sorted ascending.
	List(ctx context.Context, filter *domain.ListFilter) ([]domain.CredentialID, error)
}

// Sealer encrypts payloads before they reach storage. The aad binds a ciphertext
// to its credential id.
type Sealer interface {
	Seal(ctx context.Context, plaintext, aad []byte) (*domain.EncryptedCredential, error)
	Open(ctx context.Context, encrypted *domain.EncryptedCredential, aad []byte) ([]byte, error)
}

// StoreItem is one input of StoreBatch. A non-nil Scope selects StoreScoped.
type StoreItem struct {
	ID         domain.CredentialID
	Credential *domain.Credential
	Scope      *domain.ScopeID
}

// CredentialManager defines the credential management operations.
//
// Credentials returned by the manager are private copies. Callers should call
// Zero on them once the secret is no longer needed.
type CredentialManager interface {
	Store(ctx context.Context, id domain.CredentialID, credential *domain.Credential) error
	// Retrieve returns (nil, nil) when the credential does not exist.
	Retrieve(ctx context.Context, id domain.CredentialID) (*domain.Credential, error)
	Delete(ctx context.Context, id domain.CredentialID) error
	List(ctx context.Context, filter *domain.ListFilter) ([]domain.CredentialID, error)

	// StoreScoped fails with domain.ErrScopeViolation when id already belongs to another scope.
	StoreScoped(ctx context.Context, id domain.CredentialID, credential *domain.Credential, scope domain.ScopeID) error
	// RetrieveScoped returns (nil, nil) when the credential is absent or owned by a
	// different scope, and domain.ErrScopeRequired when it carries no scope.
	RetrieveScoped(ctx context.Context, id domain.CredentialID, scope domain.ScopeID) (*domain.Credential, error)
	// DeleteScoped reports false when the credential is absent or owned by a different scope.
	DeleteScoped(ctx context.Context, id domain.CredentialID, scope domain.ScopeID) (bool, error)
	// ListScoped returns ids stored under scope or any of its descendants.
	ListScoped(ctx context.Context, filter *domain.ListFilter, scope domain.ScopeID) ([]domain.CredentialID, error)

	Validate(ctx context.Context, id domain.CredentialID) (domain.ValidationResult, error)
	ValidateScoped(ctx context.Context, id domain.CredentialID, scope domain.ScopeID) (domain.ValidationResult, error)

	StoreBatch(ctx context.Context, items []StoreItem) domain.BatchResults[struct{}]
	RetrieveBatch(ctx context.Context, ids []domain.CredentialID) domain.BatchResults[*domain.Credential]
	DeleteBatch(ctx context.Context, ids []domain.CredentialID) domain.BatchResults[struct{}]
	ValidateBatch(ctx context.Context, ids []domain.CredentialID) domain.BatchResults[domain.ValidationResult]

	RetrieveBatchScoped(
		ctx context.Context,
		ids []domain.CredentialID,
		scope domain.ScopeID,
	) domain.BatchResults[*domain.Credential]
	DeleteBatchScoped(ctx context.Context, ids []domain.CredentialID, scope domain.ScopeID) domain.BatchResults[struct{}]
	ValidateBatchScoped(
		ctx context.Context,
		ids []domain.CredentialID,
		scope domain.ScopeID,
	) domain.BatchResults[domain.ValidationResult]

	// CacheStats reports false when caching is disabled.
	CacheStats() (cache.Stats, bool)
	Config() domain.ManagerConfig
	// Close zeroes and drops every cached credential.
	Close()
}
