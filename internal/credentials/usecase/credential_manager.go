package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/allisson/credentials/internal/credentials/batch"
	"github.com/allisson/credentials/internal/credentials/cache"
	"github.com/allisson/credentials/internal/credentials/domain"
	apperrors "github.com/allisson/credentials/internal/errors"
)

const (
	opStore    = "store"
	opRetrieve = "retrieve"
	opDelete   = "delete"
	opList     = "list"
	opValidate = "validate"
)

// credentialManager implements CredentialManager.
type credentialManager struct {
	storage   CredentialStorage
	sealer    Sealer
	cache     *cache.Cache
	executor  *batch.Executor
	validator *domain.Validator
	config    domain.ManagerConfig
	logger    *slog.Logger
	now       func() time.Time
	loads     singleflight.Group
}

// Store seals the credential, writes it to storage and then invalidates the cache entry.
func (m *credentialManager) Store(ctx context.Context, id domain.CredentialID, credential *domain.Credential) error {
	if err := checkID(id); err != nil {
		return domain.NewCredentialError(opStore, id, err)
	}
	if credential == nil {
		return domain.NewCredentialError(opStore, id, apperrors.Wrap(apperrors.ErrInvalidInput, "credential is required"))
	}
	return m.write(ctx, id, credential, credential.Metadata.Scope)
}

func (m *credentialManager) write(
	ctx context.Context,
	id domain.CredentialID,
	credential *domain.Credential,
	scope *domain.ScopeID,
) error {
	metadata := m.prepareMetadata(credential.Metadata, scope)

	encrypted, err := m.sealer.Seal(ctx, credential.Secret, []byte(id))
	if err != nil {
		return domain.NewCredentialError(opStore, id, fmt.Errorf("%w: %w", domain.ErrCrypto, err))
	}

	err = m.storage.Store(ctx, id, encrypted, &metadata)
	m.invalidate(id)
	if err != nil {
		return domain.NewCredentialError(opStore, id, fmt.Errorf("%w: %w", domain.ErrStorage, err))
	}

	m.logger.Debug("credential stored", slog.String("credential_id", id.String()), slog.String("scope", metadata.ScopeString()))
	return nil
}

// Retrieve returns the credential from cache or, on a miss, from storage.
func (m *credentialManager) Retrieve(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	if err := checkID(id); err != nil {
		return nil, domain.NewCredentialError(opRetrieve, id, err)
	}

	if m.cache != nil {
		if credential, ok := m.cache.Get(id); ok {
			m.logger.Debug("credential cache hit", slog.String("credential_id", id.String()))
			credential.Metadata.LastAccessedAt = m.now().UTC()
			return credential, nil
		}
		m.logger.Debug("credential cache miss", slog.String("credential_id", id.String()))
	}

	// Concurrent misses for the same id share a single storage round trip. The
	// fetch is detached from the first caller so its cancellation cannot fail the
	// others; each caller still gives up on its own context.
	detached := context.WithoutCancel(ctx)
	flight := m.loads.DoChan(string(id), func() (any, error) {
		return m.fetch(detached, id)
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		return nil, domain.NewCredentialError(opRetrieve, id, ctx.Err())
	case result = <-flight:
	}
	if result.Err != nil {
		return nil, result.Err
	}

	fetched, _ := result.Val.(*fetchedCredential)
	if fetched == nil {
		return nil, nil
	}
	credential, err := m.open(ctx, id, fetched)
	if err != nil {
		return nil, err
	}
	credential.Metadata.LastAccessedAt = m.now().UTC()
	return credential, nil
}

// fetchedCredential is the sealed record shared by callers joined on one load.
// It never holds plaintext.
type fetchedCredential struct {
	stored *domain.StoredCredential
	epoch  uint64
}

// fetch reads the sealed record from storage. A missing record yields nil.
func (m *credentialManager) fetch(ctx context.Context, id domain.CredentialID) (*fetchedCredential, error) {
	var epoch uint64
	if m.cache != nil {
		epoch = m.cache.Epoch()
	}

	stored, err := m.storage.Retrieve(ctx, id)
	if err != nil {
		if apperrors.Is(err, domain.ErrCredentialNotFound) {
			return nil, nil
		}
		return nil, domain.NewCredentialError(opRetrieve, id, fmt.Errorf("%w: %w", domain.ErrStorage, err))
	}
	return &fetchedCredential{stored: stored, epoch: epoch}, nil
}

// open decrypts a private copy of the fetched record and populates the cache.
func (m *credentialManager) open(
	ctx context.Context,
	id domain.CredentialID,
	fetched *fetchedCredential,
) (*domain.Credential, error) {
	plaintext, err := m.sealer.Open(ctx, fetched.stored.Encrypted, []byte(id))
	if err != nil {
		return nil, domain.NewCredentialError(opRetrieve, id, fmt.Errorf("%w: %w", domain.ErrCrypto, err))
	}

	credential := &domain.Credential{Secret: plaintext, Metadata: fetched.stored.Metadata.Clone()}
	if m.cache != nil {
		m.cache.InsertIfEpoch(fetched.epoch, id, credential)
	}
	return credential, nil
}

// Delete removes the credential from storage, then from the cache.
func (m *credentialManager) Delete(ctx context.Context, id domain.CredentialID) error {
	if err := checkID(id); err != nil {
		return domain.NewCredentialError(opDelete, id, err)
	}

	err := m.storage.Delete(ctx, id)
	m.invalidate(id)
	if err != nil && !apperrors.Is(err, domain.ErrCredentialNotFound) {
		return domain.NewCredentialError(opDelete, id, fmt.Errorf("%w: %w", domain.ErrStorage, err))
	}

	m.logger.Debug("credential deleted", slog.String("credential_id", id.String()))
	return nil
}

// List delegates to storage. Listings are never cached.
func (m *credentialManager) List(ctx context.Context, filter *domain.ListFilter) ([]domain.CredentialID, error) {
	ids, err := m.storage.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s credentials: %w: %w", opList, domain.ErrStorage, err)
	}
	return ids, nil
}

// StoreScoped stores the credential under scope, refusing to take over a credential
// that belongs to a different scope.
func (m *credentialManager) StoreScoped(
	ctx context.Context,
	id domain.CredentialID,
	credential *domain.Credential,
	scope domain.ScopeID,
) error {
	if err := checkID(id); err != nil {
		return domain.NewCredentialError(opStore, id, err)
	}
	if err := checkScope(scope); err != nil {
		return domain.NewCredentialError(opStore, id, err)
	}
	if credential == nil {
		return domain.NewCredentialError(opStore, id, apperrors.Wrap(apperrors.ErrInvalidInput, "credential is required"))
	}

	existing, err := m.storage.Retrieve(ctx, id)
	switch {
	case err == nil:
		if existing.Metadata.Scope == nil || !existing.Metadata.Scope.MatchesExact(scope) {
			return domain.NewCredentialError(opStore, id, domain.ErrScopeViolation)
		}
	case apperrors.Is(err, domain.ErrCredentialNotFound):
	default:
		return domain.NewCredentialError(opStore, id, fmt.Errorf("%w: %w", domain.ErrStorage, err))
	}

	return m.write(ctx, id, credential, &scope)
}

// RetrieveScoped hides credentials of other scopes behind a nil result.
func (m *credentialManager) RetrieveScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (*domain.Credential, error) {
	if err := checkScope(scope); err != nil {
		return nil, domain.NewCredentialError(opRetrieve, id, err)
	}

	credential, err := m.Retrieve(ctx, id)
	if err != nil || credential == nil {
		return nil, err
	}

	stored := credential.Metadata.Scope
	if stored == nil {
		credential.Zero()
		return nil, domain.NewCredentialError(opRetrieve, id, domain.ErrScopeRequired)
	}
	if !stored.MatchesExact(scope) {
		credential.Zero()
		return nil, nil
	}
	return credential, nil
}

// DeleteScoped deletes id only when it belongs to scope. It reports false, and
// leaves storage untouched, when the credential is absent or owned by another scope.
func (m *credentialManager) DeleteScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (bool, error) {
	credential, err := m.RetrieveScoped(ctx, id, scope)
	if err != nil {
		return false, err
	}
	if credential == nil {
		return false, nil
	}
	credential.Zero()

	if err := m.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// ListScoped returns the ids whose stored scope is scope or a descendant of it.
func (m *credentialManager) ListScoped(
	ctx context.Context,
	filter *domain.ListFilter,
	scope domain.ScopeID,
) ([]domain.CredentialID, error) {
	if err := checkScope(scope); err != nil {
		return nil, fmt.Errorf("%s credentials: %w", opList, err)
	}

	// The limit applies after scope filtering.
	var unlimited domain.ListFilter
	limit := 0
	if filter != nil {
		unlimited = *filter
		limit = filter.Limit
		unlimited.Limit = 0
	}

	ids, err := m.List(ctx, &unlimited)
	if err != nil {
		return nil, err
	}

	results := batch.Run(ctx, m.executor, ids, func(ctx context.Context, id domain.CredentialID) (*domain.ScopeID, error) {
		stored, err := m.storage.Retrieve(ctx, id)
		if err != nil {
			return nil, err
		}
		return stored.Metadata.Scope, nil
	})

	matched := make([]domain.CredentialID, 0, len(ids))
	for _, r := range results {
		id := ids[r.Index]
		if r.Err != nil {
			// deleted between list and lookup
			if apperrors.Is(r.Err, domain.ErrCredentialNotFound) {
				continue
			}
			return nil, domain.NewCredentialError(opList, id, fmt.Errorf("%w: %w", domain.ErrStorage, r.Err))
		}
		if r.Value != nil && r.Value.MatchesPrefix(scope) {
			matched = append(matched, id)
		}
		if limit > 0 && len(matched) == limit {
			break
		}
	}
	return matched, nil
}

// Validate evaluates the credential's metadata through the cache-aside path.
func (m *credentialManager) Validate(ctx context.Context, id domain.CredentialID) (domain.ValidationResult, error) {
	credential, err := m.Retrieve(ctx, id)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return m.validate(credential), nil
}

// ValidateScoped is Validate behind the RetrieveScoped checks.
func (m *credentialManager) ValidateScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (domain.ValidationResult, error) {
	credential, err := m.RetrieveScoped(ctx, id, scope)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return m.validate(credential), nil
}

func (m *credentialManager) validate(credential *domain.Credential) domain.ValidationResult {
	if credential == nil {
		return domain.NotFoundResult()
	}
	defer credential.Zero()
	return m.validator.Validate(&credential.Metadata, m.now().UTC())
}

// StoreBatch stores every item independently. Items that already succeeded are
// not rolled back when others fail.
func (m *credentialManager) StoreBatch(ctx context.Context, items []StoreItem) domain.BatchResults[struct{}] {
	results := batch.Run(ctx, m.executor, items, func(ctx context.Context, item StoreItem) (struct{}, error) {
		if item.Scope != nil {
			return struct{}{}, m.StoreScoped(ctx, item.ID, item.Credential, *item.Scope)
		}
		return struct{}{}, m.Store(ctx, item.ID, item.Credential)
	})
	return collectResults(m, opStore, results, func(i int) domain.CredentialID { return items[i].ID })
}

// RetrieveBatch retrieves every id independently. Absent ids yield a nil value.
func (m *credentialManager) RetrieveBatch(
	ctx context.Context,
	ids []domain.CredentialID,
) domain.BatchResults[*domain.Credential] {
	results := batch.Run(ctx, m.executor, ids, m.Retrieve)
	return collectResults(m, opRetrieve, results, func(i int) domain.CredentialID { return ids[i] })
}

// DeleteBatch deletes every id independently.
func (m *credentialManager) DeleteBatch(ctx context.Context, ids []domain.CredentialID) domain.BatchResults[struct{}] {
	results := batch.Run(ctx, m.executor, ids, func(ctx context.Context, id domain.CredentialID) (struct{}, error) {
		return struct{}{}, m.Delete(ctx, id)
	})
	return collectResults(m, opDelete, results, func(i int) domain.CredentialID { return ids[i] })
}

// ValidateBatch validates every id independently.
func (m *credentialManager) ValidateBatch(
	ctx context.Context,
	ids []domain.CredentialID,
) domain.BatchResults[domain.ValidationResult] {
	results := batch.Run(ctx, m.executor, ids, m.Validate)
	return collectResults(m, opValidate, results, func(i int) domain.CredentialID { return ids[i] })
}

// RetrieveBatchScoped applies RetrieveScoped to every id. Ids owned by other
// scopes yield a nil value, the same as absent ones.
func (m *credentialManager) RetrieveBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[*domain.Credential] {
	results := batch.Run(ctx, m.executor, ids, func(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
		return m.RetrieveScoped(ctx, id, scope)
	})
	return collectResults(m, opRetrieve, results, func(i int) domain.CredentialID { return ids[i] })
}

// DeleteBatchScoped applies DeleteScoped to every id. Ids owned by other scopes
// are left in place and still reported as succeeded.
func (m *credentialManager) DeleteBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[struct{}] {
	results := batch.Run(ctx, m.executor, ids, func(ctx context.Context, id domain.CredentialID) (struct{}, error) {
		_, err := m.DeleteScoped(ctx, id, scope)
		return struct{}{}, err
	})
	return collectResults(m, opDelete, results, func(i int) domain.CredentialID { return ids[i] })
}

// ValidateBatchScoped applies ValidateScoped to every id.
func (m *credentialManager) ValidateBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[domain.ValidationResult] {
	results := batch.Run(ctx, m.executor, ids, func(ctx context.Context, id domain.CredentialID) (domain.ValidationResult, error) {
		return m.ValidateScoped(ctx, id, scope)
	})
	return collectResults(m, opValidate, results, func(i int) domain.CredentialID { return ids[i] })
}

// CacheStats returns the cache counters, or false when caching is disabled.
func (m *credentialManager) CacheStats() (cache.Stats, bool) {
	if m.cache == nil {
		return cache.Stats{}, false
	}
	return m.cache.Stats(), true
}

// Config returns the immutable configuration snapshot.
func (m *credentialManager) Config() domain.ManagerConfig {
	return m.config
}

// Close zeroes and drops every cached credential.
func (m *credentialManager) Close() {
	if m.cache != nil {
		m.cache.InvalidateAll()
	}
}

func (m *credentialManager) invalidate(id domain.CredentialID) {
	if m.cache != nil {
		m.cache.Invalidate(id)
	}
	// Later readers must not join a load that started before this write.
	m.loads.Forget(string(id))
}

func (m *credentialManager) prepareMetadata(metadata domain.Metadata, scope *domain.ScopeID) domain.Metadata {
	out := metadata.Clone()
	now := m.now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.LastAccessedAt.IsZero() {
		out.LastAccessedAt = out.CreatedAt
	}
	out.Tags = domain.NormalizeTags(out.Tags)
	if scope != nil {
		s := *scope
		out.Scope = &s
	}
	return out
}

func collectResults[T any](
	m *credentialManager,
	op string,
	results []batch.Result[T],
	idAt func(int) domain.CredentialID,
) domain.BatchResults[T] {
	out := make(domain.BatchResults[T], len(results))
	for _, r := range results {
		out[r.Index] = domain.BatchResult[T]{ID: idAt(r.Index), Value: r.Value, Err: r.Err}
	}
	if failed := out.Failed(); failed > 0 {
		m.logger.Warn("credential batch finished with failures",
			slog.String("operation", op),
			slog.Int("batch_size", len(out)),
			slog.Int("failed", failed),
		)
	}
	return out
}

func checkID(id domain.CredentialID) error {
	_, err := domain.NewCredentialID(string(id))
	return err
}

func checkScope(scope domain.ScopeID) error {
	if scope.IsZero() {
		return fmt.Errorf("%w: scope must not be empty", domain.ErrInvalidScope)
	}
	return nil
}
