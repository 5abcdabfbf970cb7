// Package dto provides data transfer objects for the credential HTTP API.
package dto

import (
	"encoding/base64"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/credentials/internal/credentials/domain"
	customValidation "github.com/allisson/credentials/internal/validation"
)

// MaxBatchSize caps the number of items accepted by a batch endpoint.
const MaxBatchSize = 1000

// StoreCredentialRequest carries a secret and its metadata. Value is standard base64.
type StoreCredentialRequest struct {
	Value                   string     `json:"value"`
	Tags                    []string   `json:"tags,omitempty"`
	ExpiresAt               *time.Time `json:"expires_at,omitempty"`
	RotationIntervalSeconds int64      `json:"rotation_interval_seconds,omitempty"`
}

// Validate checks if the store request is valid.
func (r *StoreCredentialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value, validation.Required, customValidation.Base64),
		validation.Field(&r.Tags,
			validation.Length(0, 64),
			validation.Each(
				customValidation.NotBlank,
				customValidation.NoControlChars,
				validation.Length(1, 128),
			),
		),
		validation.Field(&r.RotationIntervalSeconds, validation.Min(int64(0))),
	)
}

// ToCredential decodes the value into a new credential. Callers zero it after use.
func (r *StoreCredentialRequest) ToCredential() (*domain.Credential, error) {
	value, err := base64.StdEncoding.DecodeString(r.Value)
	if err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	credential := domain.NewCredential(value)
	clear(value)

	credential.Metadata.Tags = domain.NormalizeTags(r.Tags)
	if r.ExpiresAt != nil {
		expiresAt := r.ExpiresAt.UTC()
		credential.Metadata.ExpiresAt = &expiresAt
	}
	if r.RotationIntervalSeconds > 0 {
		credential.Metadata.RotationPolicy = &domain.RotationPolicy{IntervalSeconds: r.RotationIntervalSeconds}
	}
	return credential, nil
}

// BatchStoreItem is one credential of a batch store. Scope is optional.
type BatchStoreItem struct {
	ID    string `json:"id"`
	Scope string `json:"scope,omitempty"`
	StoreCredentialRequest
}

// BatchStoreRequest stores several credentials at once.
type BatchStoreRequest struct {
	Items []BatchStoreItem `json:"items"`
}

// Validate checks the batch size and every item.
func (r *BatchStoreRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Items,
			validation.Required,
			validation.Length(1, MaxBatchSize),
			validation.Each(validation.By(validateBatchStoreItem)),
		),
	)
}

func validateBatchStoreItem(value interface{}) error {
	item, ok := value.(BatchStoreItem)
	if !ok {
		return validation.NewError("validation_batch_item_type", "must be a batch store item")
	}
	if err := validation.Validate(item.ID, validation.Required, customValidation.NotBlank); err != nil {
		return err
	}
	return item.StoreCredentialRequest.Validate()
}

// BatchIDsRequest lists the ids of a batch retrieve, delete or validate.
type BatchIDsRequest struct {
	IDs []string `json:"ids"`
}

// Validate checks if the id list is valid.
func (r *BatchIDsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IDs,
			validation.Required,
			validation.Length(1, MaxBatchSize),
			validation.Each(validation.Required, customValidation.NotBlank),
		),
	)
}
