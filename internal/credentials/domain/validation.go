package domain

import "time"

// DefaultRotationThreshold is the fraction of total lifetime below which
// rotation is recommended.
const DefaultRotationThreshold = 0.25

// ValidationStatus classifies a validation outcome.
type ValidationStatus string

const (
	ValidationStatusValid    ValidationStatus = "valid"
	ValidationStatusExpired  ValidationStatus = "expired"
	ValidationStatusNotFound ValidationStatus = "not_found"
	ValidationStatusInvalid  ValidationStatus = "invalid"
)

// ValidationDetails explains a ValidationResult. ExpiredAt and Now are set
// for expired credentials, Reason for invalid ones.
type ValidationDetails struct {
	Status    ValidationStatus
	ExpiredAt time.Time
	Now       time.Time
	Reason    string
}

// ValidationResult is the outcome of validating a credential's metadata.
type ValidationResult struct {
	Valid               bool
	Details             ValidationDetails
	RotationRecommended bool
}

// NotFoundResult is the result for a credential that does not exist.
func NotFoundResult() ValidationResult {
	return ValidationResult{Details: ValidationDetails{Status: ValidationStatusNotFound}}
}

// Validator evaluates expiration and rotation need from metadata alone.
// It performs no I/O and is safe for concurrent use.
type Validator struct {
	threshold float64
}

// NewValidator creates a validator. A threshold outside (0, 1) falls back
// to DefaultRotationThreshold.
func NewValidator(threshold float64) *Validator {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultRotationThreshold
	}
	return &Validator{threshold: threshold}
}

// Threshold returns the rotation threshold fraction.
func (v *Validator) Threshold() float64 {
	return v.threshold
}

// Validate evaluates metadata at the instant now.
func (v *Validator) Validate(metadata *Metadata, now time.Time) ValidationResult {
	if metadata == nil {
		return NotFoundResult()
	}

	if metadata.ExpiresAt == nil {
		return ValidationResult{
			Valid:               true,
			Details:             ValidationDetails{Status: ValidationStatusValid},
			RotationRecommended: v.policyRotationDue(metadata, now),
		}
	}

	expiresAt := *metadata.ExpiresAt
	if expiresAt.Before(metadata.CreatedAt) {
		return ValidationResult{
			Details: ValidationDetails{
				Status: ValidationStatusInvalid,
				Reason: "expiration time precedes creation time",
			},
		}
	}

	if !now.Before(expiresAt) {
		return ValidationResult{
			Details: ValidationDetails{
				Status:    ValidationStatusExpired,
				ExpiredAt: expiresAt,
				Now:       now,
			},
			RotationRecommended: true,
		}
	}

	return ValidationResult{
		Valid:               true,
		Details:             ValidationDetails{Status: ValidationStatusValid},
		RotationRecommended: v.belowThreshold(expiresAt.Sub(now), expiresAt.Sub(metadata.CreatedAt)),
	}
}

// policyRotationDue applies the rotation policy interval as if it were a lifetime.
func (v *Validator) policyRotationDue(metadata *Metadata, now time.Time) bool {
	if metadata.RotationPolicy == nil || metadata.RotationPolicy.Interval() <= 0 {
		return false
	}
	interval := metadata.RotationPolicy.Interval()
	due := metadata.CreatedAt.Add(interval)
	return v.belowThreshold(due.Sub(now), interval)
}

func (v *Validator) belowThreshold(remaining, lifetime time.Duration) bool {
	return float64(remaining) < v.threshold*float64(lifetime)
}
