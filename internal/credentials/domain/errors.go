package domain

import (
	"fmt"

	"github.com/allisson/credentials/internal/errors"
)

// Credential error definitions.
//
// These errors wrap the standard errors from internal/errors so the HTTP layer
// can map them to status codes without knowing about credentials.
var (
	// ErrCredentialNotFound indicates the credential does not exist in storage.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrInvalidCredentialID indicates a malformed credential identifier.
	ErrInvalidCredentialID = errors.Wrap(errors.ErrInvalidInput, "invalid credential id")

	// ErrInvalidScope indicates a malformed scope identifier.
	ErrInvalidScope = errors.Wrap(errors.ErrInvalidInput, "invalid scope")

	// ErrInvalidConfig indicates the manager configuration failed validation.
	ErrInvalidConfig = errors.Wrap(errors.ErrInvalidInput, "invalid manager configuration")

	// ErrScopeViolation indicates the requested scope does not own the stored credential.
	ErrScopeViolation = errors.Wrap(errors.ErrForbidden, "scope violation")

	// ErrScopeRequired indicates a scope was requested but the credential carries none.
	ErrScopeRequired = errors.Wrap(errors.ErrInvalidInput, "credential has no scope")

	// ErrStorage indicates the storage backend failed.
	ErrStorage = errors.New("storage error")

	// ErrCache indicates an internal cache failure.
	ErrCache = errors.New("cache error")

	// ErrCrypto indicates the crypto collaborator failed to seal or open a payload.
	ErrCrypto = errors.New("crypto error")
)

// CredentialError annotates a failure with the operation and credential id.
// The message never includes the secret value.
type CredentialError struct {
	Op  string
	ID  CredentialID
	Err error
}

// NewCredentialError wraps err with the operation and id. Returns nil when err is nil.
func NewCredentialError(op string, id CredentialID, err error) error {
	if err == nil {
		return nil
	}
	return &CredentialError{Op: op, ID: id, Err: err}
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s credential %q: %v", e.Op, e.ID, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// ItemError pairs a failed batch item with its error.
type ItemError struct {
	ID  CredentialID
	Err error
}

// BatchError summarizes a batch whose items did not all succeed.
type BatchError struct {
	Succeeded int
	Failed    int
	Failures  []ItemError
}

func (e *BatchError) Error() string {
	msg := fmt.Sprintf("batch finished with %d succeeded and %d failed", e.Succeeded, e.Failed)
	if len(e.Failures) > 0 {
		first := e.Failures[0]
		msg = fmt.Sprintf("%s (first failure %q: %v)", msg, first.ID, first.Err)
	}
	return msg
}

// Unwrap exposes the per-item errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
