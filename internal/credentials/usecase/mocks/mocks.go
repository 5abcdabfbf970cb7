// Package mocks provides mock implementations of the credential use case interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/credentials/internal/credentials/cache"
	"github.com/allisson/credentials/internal/credentials/domain"
	"github.com/allisson/credentials/internal/credentials/usecase"
)

// MockCredentialStorage is a mock implementation of CredentialStorage.
type MockCredentialStorage struct {
	mock.Mock
}

// Store mocks the Store method.
func (m *MockCredentialStorage) Store(
	ctx context.Context,
	id domain.CredentialID,
	encrypted *domain.EncryptedCredential,
	metadata *domain.Metadata,
) error {
	args := m.Called(ctx, id, encrypted, metadata)
	return args.Error(0)
}

// Retrieve mocks the Retrieve method.
func (m *MockCredentialStorage) Retrieve(ctx context.Context, id domain.CredentialID) (*domain.StoredCredential, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredCredential), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockCredentialStorage) Delete(ctx context.Context, id domain.CredentialID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// List mocks the List method.
func (m *MockCredentialStorage) List(ctx context.Context, filter *domain.ListFilter) ([]domain.CredentialID, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CredentialID), args.Error(1)
}

// MockSealer is a mock implementation of Sealer.
type MockSealer struct {
	mock.Mock
}

// Seal mocks the Seal method.
func (m *MockSealer) Seal(ctx context.Context, plaintext, aad []byte) (*domain.EncryptedCredential, error) {
	args := m.Called(ctx, plaintext, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EncryptedCredential), args.Error(1)
}

// Open mocks the Open method.
func (m *MockSealer) Open(ctx context.Context, encrypted *domain.EncryptedCredential, aad []byte) ([]byte, error) {
	args := m.Called(ctx, encrypted, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockCredentialManager is a mock implementation of CredentialManager.
type MockCredentialManager struct {
	mock.Mock
}

// Store mocks the Store method.
func (m *MockCredentialManager) Store(ctx context.Context, id domain.CredentialID, credential *domain.Credential) error {
	args := m.Called(ctx, id, credential)
	return args.Error(0)
}

// Retrieve mocks the Retrieve method.
func (m *MockCredentialManager) Retrieve(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credential), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockCredentialManager) Delete(ctx context.Context, id domain.CredentialID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// List mocks the List method.
func (m *MockCredentialManager) List(ctx context.Context, filter *domain.ListFilter) ([]domain.CredentialID, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CredentialID), args.Error(1)
}

// StoreScoped mocks the StoreScoped method.
func (m *MockCredentialManager) StoreScoped(
	ctx context.Context,
	id domain.CredentialID,
	credential *domain.Credential,
	scope domain.ScopeID,
) error {
	args := m.Called(ctx, id, credential, scope)
	return args.Error(0)
}

// RetrieveScoped mocks the RetrieveScoped method.
func (m *MockCredentialManager) RetrieveScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (*domain.Credential, error) {
	args := m.Called(ctx, id, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credential), args.Error(1)
}

// ListScoped mocks the ListScoped method.
func (m *MockCredentialManager) ListScoped(
	ctx context.Context,
	filter *domain.ListFilter,
	scope domain.ScopeID,
) ([]domain.CredentialID, error) {
	args := m.Called(ctx, filter, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CredentialID), args.Error(1)
}

// Validate mocks the Validate method.
func (m *MockCredentialManager) Validate(ctx context.Context, id domain.CredentialID) (domain.ValidationResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.ValidationResult), args.Error(1)
}

// ValidateScoped mocks the ValidateScoped method.
func (m *MockCredentialManager) ValidateScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (domain.ValidationResult, error) {
	args := m.Called(ctx, id, scope)
	return args.Get(0).(domain.ValidationResult), args.Error(1)
}

// StoreBatch mocks the StoreBatch method.
func (m *MockCredentialManager) StoreBatch(ctx context.Context, items []usecase.StoreItem) domain.BatchResults[struct{}] {
	args := m.Called(ctx, items)
	return args.Get(0).(domain.BatchResults[struct{}])
}

// RetrieveBatch mocks the RetrieveBatch method.
func (m *MockCredentialManager) RetrieveBatch(
	ctx context.Context,
	ids []domain.CredentialID,
) domain.BatchResults[*domain.Credential] {
	args := m.Called(ctx, ids)
	return args.Get(0).(domain.BatchResults[*domain.Credential])
}

// DeleteBatch mocks the DeleteBatch method.
func (m *MockCredentialManager) DeleteBatch(ctx context.Context, ids []domain.CredentialID) domain.BatchResults[struct{}] {
	args := m.Called(ctx, ids)
	return args.Get(0).(domain.BatchResults[struct{}])
}

// ValidateBatch mocks the ValidateBatch method.
func (m *MockCredentialManager) ValidateBatch(
	ctx context.Context,
	ids []domain.CredentialID,
) domain.BatchResults[domain.ValidationResult] {
	args := m.Called(ctx, ids)
	return args.Get(0).(domain.BatchResults[domain.ValidationResult])
}

// DeleteScoped mocks the DeleteScoped method.
func (m *MockCredentialManager) DeleteScoped(
	ctx context.Context,
	id domain.CredentialID,
	scope domain.ScopeID,
) (bool, error) {
	args := m.Called(ctx, id, scope)
	return args.Bool(0), args.Error(1)
}

// RetrieveBatchScoped mocks the RetrieveBatchScoped method.
func (m *MockCredentialManager) RetrieveBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[*domain.Credential] {
	args := m.Called(ctx, ids, scope)
	return args.Get(0).(domain.BatchResults[*domain.Credential])
}

// DeleteBatchScoped mocks the DeleteBatchScoped method.
func (m *MockCredentialManager) DeleteBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[struct{}] {
	args := m.Called(ctx, ids, scope)
	return args.Get(0).(domain.BatchResults[struct{}])
}

// ValidateBatchScoped mocks the ValidateBatchScoped method.
func (m *MockCredentialManager) ValidateBatchScoped(
	ctx context.Context,
	ids []domain.CredentialID,
	scope domain.ScopeID,
) domain.BatchResults[domain.ValidationResult] {
	args := m.Called(ctx, ids, scope)
	return args.Get(0).(domain.BatchResults[domain.ValidationResult])
}

// CacheStats mocks the CacheStats method.
func (m *MockCredentialManager) CacheStats() (cache.Stats, bool) {
	args := m.Called()
	return args.Get(0).(cache.Stats), args.Bool(1)
}

// Config mocks the Config method.
func (m *MockCredentialManager) Config() domain.ManagerConfig {
	args := m.Called()
	return args.Get(0).(domain.ManagerConfig)
}

// Close mocks the Close method.
func (m *MockCredentialManager) Close() {
	m.Called()
}

// MockRewrapUseCase is a mock implementation of RewrapUseCase.
type MockRewrapUseCase struct {
	mock.Mock
}

// Rewrap mocks the Rewrap method.
func (m *MockRewrapUseCase) Rewrap(
	ctx context.Context,
	filter *domain.ListFilter,
	dryRun bool,
) (*usecase.RewrapResult, error) {
	args := m.Called(ctx, filter, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.RewrapResult), args.Error(1)
}

var (
	_ usecase.CredentialStorage = (*MockCredentialStorage)(nil)
	_ usecase.Sealer            = (*MockSealer)(nil)
	_ usecase.CredentialManager = (*MockCredentialManager)(nil)
	_ usecase.RewrapUseCase     = (*MockRewrapUseCase)(nil)
)
