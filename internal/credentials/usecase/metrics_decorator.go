package usecase

import (
	"context"
	"time"

	"github.com/allisson/credentials/internal/credentials/cache"
	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/metrics"
)

const metricsDomain = "credentials"

// credentialManagerWithMetrics decorates CredentialManager with metrics instrumentation.
type credentialManagerWithMetrics struct {
	next    CredentialManager
	metrics metrics.BusinessMetrics
}

// NewCredentialManagerWithMetrics wraps a CredentialManager with metrics recording.
func NewCredentialManagerWithMetrics(manager CredentialManager, m metrics.BusinessMetrics) CredentialManager {
	return &credentialManagerWithMetrics{
		next:    manager,
		metrics: m,
	}
}

func (c *credentialManagerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	c.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	c.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Store records metrics for credential store operations.
func (c *credentialManagerWithMetrics) Store(
	ctx context.Context,
	id domain.CredentialID,
	credential *domain.Credential,
) error {
	start := time.Now()
	err := c.next.Store(ctx, id, credential)
	c.record(ctx, "credential_store", start, err)
	return err
}

// Retrieve records metrics for credential retrieval operations.
func (c *credentialManagerWithMetrics) Retrieve(
	ctx context.Context,
	id domain.CredentialID,
) (*domain.Credential, error) {
	start := time.Now()
	credential, err := c.next.Retrieve(ctx, id)
	c.record(ctx, "credential_retrieve", start, err)
	return credential, err
}

// Delete records metrics for credential deletion operations.
func (c *credentialManagerWithMetrics) Delete(ctx context.Context, id domain.CredentialID) error {
	start := time.Now()
	err := c.next.Delete(ctx, id)
	c.record(ctx, "credential_delete", start, err)
	return err
}

// List records metrics for credential listing operations.
func (c *credentialManagerWithMetrics) List(
	ctx context.Context,
	filter *domain.ListFilter,
) ([]domain.CredentialID, error) {
	start := time.Now()
	ids, err := c.next.List(ctx, filter)
	c.record(ctx, "credential_list", start, err)
	return ids, err
}

// StoreScoped records metrics for scoped store operations.
func (c *credentialManagerWithMetrics) StoreScoped(
	ctx context.Context,
	id domain.CredentialID,
	credential *domain.Credential,
	scope domain.ScopeID,
) error {
	start := time.Now()
	err := c.next.StoreScoped(ctx, id, credential, scope)
	c.record(ctx, "credential_store_scoped", start, err)
	return err
}

// RetrieveScoped records metrics for scoped retrieval operations.
func (c *credentialManagerWithMetrics) RetrieveScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (*domain.Credential, error) {
	start := time.Now()
	credential, err := c.next.RetrieveScoped(ctx, id, scope)
	c.record(ctx, "credential_retrieve_scoped", start, err)
	return credential, err
}

// ListScoped records metrics for scoped listing operations.
func (c *credentialManagerWithMetrics) ListScoped(
	ctx context.Context,
	filter *domain.ListFilter,
	scope domain.ScopeID,
) ([]domain.CredentialID, error) {
	start := time.Now()
	ids, err := c.next.ListScoped(ctx, filter, scope)
	c.record(ctx, "credential_list_scoped", start, err)
	return ids, err
}

// Validate records metrics for validation operations.
func (c *credentialManagerWithMetrics) Validate(
	ctx context.Context,
	id domain.CredentialID,
) (domain.ValidationResult, error) {
	start := time.Now()
	result, err := c.next.Validate(ctx, id)
	c.record(ctx, "credential_validate", start, err)
	return result, err
}

// ValidateScoped records metrics for scoped validation operations.
func (c *credentialManagerWithMetrics) ValidateScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (domain.ValidationResult, error) {
	start := time.Now()
	result, err := c.next.ValidateScoped(ctx, id, scope)
	c.record(ctx, "credential_validate_scoped", start, err)
	return result, err
}

// StoreBatch records metrics for batch store operations.
func (c *credentialManagerWithMetrics) StoreBatch(
	ctx context.Context,
	items []StoreItem,
) domain.BatchResults[struct{}] {
	start := time.Now()
	results := c.next.StoreBatch(ctx, items)
	c.record(ctx, "credential_store_batch", start, results.Err())
	return results
}

// RetrieveBatch records metrics for batch retrieval operations.
func (c *credentialManagerWithMetrics) RetrieveBatch(
	ctx context.Context,
	ids []domain.CredentialID,
) domain.BatchResults[*domain.Credential] {
	start := time.Now()
	results := c.next.RetrieveBatch(ctx, ids)
	c.record(ctx, "credential_retrieve_batch", start, results.Err())
	return results
}

// DeleteBatch records metrics for batch deletion operations.
func (c *credentialManagerWithMetrics) DeleteBatch(
	ctx context.Context,
	ids []domain.CredentialID,
) domain.BatchResults[struct{}] {
	start := time.Now()
	results := c.next.DeleteBatch(ctx, ids)
	c.record(ctx, "credential_delete_batch", start, results.Err())
	return results
}

// ValidateBatch records metrics for batch validation operations.
func (c *credentialManagerWithMetrics) ValidateBatch(
	ctx context.Context,
	ids []domain.CredentialID,
) domain.BatchResults[domain.ValidationResult] {
	start := time.Now()
	results := c.next.ValidateBatch(ctx, ids)
	c.record(ctx, "credential_validate_batch", start, results.Err())
	return results
}

// DeleteScoped records metrics for scoped deletion operations.
func (c *credentialManagerWithMetrics) DeleteScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (bool, error) {
	start := time.Now()
	deleted, err := c.next.DeleteScoped(ctx, id, scope)
	c.record(ctx, "credential_delete_scoped", start, err)
	return deleted, err
}

// RetrieveBatchScoped records metrics for scoped batch retrieval operations.
func (c *credentialManagerWithMetrics) RetrieveBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[*domain.Credential] {
	start := time.Now()
	results := c.next.RetrieveBatchScoped(ctx, ids, scope)
	c.record(ctx, "credential_retrieve_batch_scoped", start, results.Err())
	return results
}

// DeleteBatchScoped records metrics for scoped batch deletion operations.
func (c *credentialManagerWithMetrics) DeleteBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[struct{}] {
	start := time.Now()
	results := c.next.DeleteBatchScoped(ctx, ids, scope)
	c.record(ctx, "credential_delete_batch_scoped", start, results.Err())
	return results
}

// ValidateBatchScoped records metrics for scoped batch validation operations.
func (c *credentialManagerWithMetrics) ValidateBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[domain.ValidationResult] {
	start := time.Now()
	results := c.next.ValidateBatchScoped(ctx, ids, scope)
	c.record(ctx, "credential_validate_batch_scoped", start, results.Err())
	return results
}

func (c *credentialManagerWithMetrics) CacheStats() (cache.Stats, bool) {
	return c.next.CacheStats()
}

func (c *credentialManagerWithMetrics) Config() domain.ManagerConfig {
	return c.next.Config()
}

func (c *credentialManagerWithMetrics) Close() {
	c.next.Close()
}
