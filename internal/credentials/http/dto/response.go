package dto

import (
	"encoding/base64"
	"time"

	"github.com/allisson/credentials/internal/credentials/domain"
)

// CredentialResponse represents a credential in API responses. Value holds the
// base64 plaintext and is only set by read endpoints.
type CredentialResponse struct {
	ID                      string     `json:"id"`
	Value                   string     `json:"value,omitempty"`
	Tags                    []string   `json:"tags"`
	Scope                   string     `json:"scope,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	LastAccessedAt          time.Time  `json:"last_accessed_at"`
	ExpiresAt               *time.Time `json:"expires_at,omitempty"`
	RotationIntervalSeconds int64      `json:"rotation_interval_seconds,omitempty"`
}

// MapCredentialToResponse encodes the credential including its secret.
func MapCredentialToResponse(id domain.CredentialID, credential *domain.Credential) CredentialResponse {
	response := CredentialResponse{
		ID:             id.String(),
		Value:          base64.StdEncoding.EncodeToString(credential.Secret),
		Tags:           credential.Metadata.Tags,
		Scope:          credential.Metadata.ScopeString(),
		CreatedAt:      credential.Metadata.CreatedAt,
		LastAccessedAt: credential.Metadata.LastAccessedAt,
		ExpiresAt:      credential.Metadata.ExpiresAt,
	}
	if response.Tags == nil {
		response.Tags = []string{}
	}
	if credential.Metadata.RotationPolicy != nil {
		response.RotationIntervalSeconds = credential.Metadata.RotationPolicy.IntervalSeconds
	}
	return response
}

// StoreResponse is returned by the store endpoints.
type StoreResponse struct {
	ID string `json:"id"`
}

// ListResponse wraps the ids returned by the list endpoint.
type ListResponse struct {
	Data []string `json:"data"`
}

// MapIDsToListResponse converts credential ids to strings.
func MapIDsToListResponse(ids []domain.CredentialID) ListResponse {
	data := make([]string, 0, len(ids))
	for _, id := range ids {
		data = append(data, id.String())
	}
	return ListResponse{Data: data}
}

// ValidationResponse is the result of a validate call.
type ValidationResponse struct {
	Valid               bool       `json:"valid"`
	Status              string     `json:"status"`
	Reason              string     `json:"reason,omitempty"`
	ExpiredAt           *time.Time `json:"expired_at,omitempty"`
	RotationRecommended bool       `json:"rotation_recommended"`
}

// MapValidationToResponse converts a domain validation result.
func MapValidationToResponse(result domain.ValidationResult) ValidationResponse {
	response := ValidationResponse{
		Valid:               result.Valid,
		Status:              string(result.Details.Status),
		Reason:              result.Details.Reason,
		RotationRecommended: result.RotationRecommended,
	}
	if !result.Details.ExpiredAt.IsZero() {
		expiredAt := result.Details.ExpiredAt
		response.ExpiredAt = &expiredAt
	}
	return response
}

// BatchItemResponse is the outcome of one batch item. Error is empty on success.
type BatchItemResponse struct {
	ID         string              `json:"id"`
	Error      string              `json:"error,omitempty"`
	Credential *CredentialResponse `json:"credential,omitempty"`
	Validation *ValidationResponse `json:"validation,omitempty"`
}

// BatchResponse lists every item in request order.
type BatchResponse struct {
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Items     []BatchItemResponse `json:"items"`
}

// MapBatchResults converts batch results. describeErr renders failures and
// mapValue fills in successful items.
func MapBatchResults[T any](
	results domain.BatchResults[T],
	describeErr func(error) string,
	mapValue func(item *BatchItemResponse, id domain.CredentialID, value T),
) BatchResponse {
	response := BatchResponse{
		Succeeded: results.Succeeded(),
		Failed:    results.Failed(),
		Items:     make([]BatchItemResponse, 0, len(results)),
	}
	for _, result := range results {
		item := BatchItemResponse{ID: result.ID.String()}
		if result.Err != nil {
			item.Error = describeErr(result.Err)
		} else if mapValue != nil {
			mapValue(&item, result.ID, result.Value)
		}
		response.Items = append(response.Items, item)
	}
	return response
}
