package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/allisson/credentials/internal/credentials/domain"
	credentialsUsecase "github.com/allisson/credentials/internal/credentials/usecase"
)

// StoreOptions holds the flags of the store command.
type StoreOptions struct {
	ID    string
	Scope string
	// Value is the secret. "-" reads it from the command input.
	Value            string
	Tags             string
	ExpiresIn        time.Duration
	RotationInterval time.Duration
}

// RunStoreCredential stores or replaces a credential, under a scope when one is given.
func RunStoreCredential(
	ctx context.Context,
	manager credentialsUsecase.CredentialManager,
	streams IOTuple,
	opts StoreOptions,
) error {
	id, err := domain.NewCredentialID(opts.ID)
	if err != nil {
		return err
	}
	scope, err := parseScope(opts.Scope)
	if err != nil {
		return err
	}
	if opts.ExpiresIn < 0 || opts.RotationInterval < 0 {
		return fmt.Errorf("--expires-in and --rotation-interval must not be negative")
	}

	secret, err := readSecret(streams.Reader, opts.Value)
	if err != nil {
		return err
	}
	credential := domain.NewCredential(secret)
	clear(secret)
	defer credential.Zero()

	credential.Metadata.Tags = parseTags(opts.Tags)
	if credential.Metadata.Tags == nil {
		credential.Metadata.Tags = []string{}
	}
	if opts.ExpiresIn > 0 {
		expiresAt := credential.Metadata.CreatedAt.Add(opts.ExpiresIn)
		credential.Metadata.ExpiresAt = &expiresAt
	}
	if opts.RotationInterval > 0 {
		credential.Metadata.RotationPolicy = &domain.RotationPolicy{
			IntervalSeconds: int64(opts.RotationInterval / time.Second),
		}
	}

	if scope != nil {
		err = manager.StoreScoped(ctx, id, credential, *scope)
	} else {
		err = manager.Store(ctx, id, credential)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(streams.Writer, "Stored credential %s\n", id)
	return err
}

// readSecret returns value, or the trimmed command input when value is "-".
func readSecret(reader io.Reader, value string) ([]byte, error) {
	if value != "-" {
		if value == "" {
			return nil, fmt.Errorf("--value must not be empty")
		}
		return []byte(value), nil
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from input: %w", err)
	}
	data = bytes.TrimRight(data, "\r\n")
	if len(data) == 0 {
		return nil, fmt.Errorf("secret read from input is empty")
	}
	return data, nil
}

// RunGetCredential prints a credential's metadata. The secret is printed only
// with reveal set: raw in text format, base64 encoded in JSON.
func RunGetCredential(
	ctx context.Context,
	manager credentialsUsecase.CredentialManager,
	writer io.Writer,
	rawID string,
	rawScope string,
	reveal bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	id, err := domain.NewCredentialID(rawID)
	if err != nil {
		return err
	}
	scope, err := parseScope(rawScope)
	if err != nil {
		return err
	}

	var credential *domain.Credential
	if scope != nil {
		credential, err = manager.RetrieveScoped(ctx, id, *scope)
	} else {
		credential, err = manager.Retrieve(ctx, id)
	}
	if err != nil {
		return err
	}
	if credential == nil {
		return fmt.Errorf("credential %s not found", id)
	}
	defer credential.Zero()

	metadata := credential.Metadata
	if format == "json" {
		out := map[string]interface{}{
			"id":               id.String(),
			"created_at":       metadata.CreatedAt,
			"last_accessed_at": metadata.LastAccessedAt,
			"tags":             metadata.Tags,
			"expires_at":       metadata.ExpiresAt,
			"scope":            metadata.ScopeString(),
		}
		if metadata.RotationPolicy != nil {
			out["rotation_interval_seconds"] = metadata.RotationPolicy.IntervalSeconds
		}
		if reveal {
			out["value"] = base64.StdEncoding.EncodeToString(credential.Secret)
		}
		return writeJSON(writer, out)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ID:         %s\n", id)
	if scope := metadata.ScopeString(); scope != "" {
		fmt.Fprintf(&b, "Scope:      %s\n", scope)
	}
	fmt.Fprintf(&b, "Created:    %s\n", metadata.CreatedAt.Format(time.RFC3339))
	if metadata.ExpiresAt != nil {
		fmt.Fprintf(&b, "Expires:    %s\n", metadata.ExpiresAt.Format(time.RFC3339))
	}
	if metadata.RotationPolicy != nil {
		fmt.Fprintf(&b, "Rotation:   %s\n", metadata.RotationPolicy.Interval())
	}
	if len(metadata.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:       %s\n", strings.Join(metadata.Tags, ","))
	}
	if reveal {
		fmt.Fprintf(&b, "Value:      %s\n", credential.Secret)
	}
	_, err = io.WriteString(writer, b.String())
	return err
}

// RunDeleteCredential deletes a credential. With a scope the credential is only
// deleted when it belongs to that scope.
func RunDeleteCredential(
	ctx context.Context,
	manager credentialsUsecase.CredentialManager,
	writer io.Writer,
	rawID string,
	rawScope string,
) error {
	id, err := domain.NewCredentialID(rawID)
	if err != nil {
		return err
	}
	scope, err := parseScope(rawScope)
	if err != nil {
		return err
	}

	if scope != nil {
		deleted, err := manager.DeleteScoped(ctx, id, *scope)
		if err != nil {
			return err
		}
		if !deleted {
			_, err = fmt.Fprintf(writer, "Credential %s not found in scope %s\n", id, scope.String())
			return err
		}
	} else if err := manager.Delete(ctx, id); err != nil {
		return err
	}

	_, err = fmt.Fprintf(writer, "Deleted credential %s\n", id)
	return err
}

// RunListCredentials prints the ids matching the filter, one per line in text format.
func RunListCredentials(
	ctx context.Context,
	manager credentialsUsecase.CredentialManager,
	writer io.Writer,
	prefix string,
	tags string,
	limit int,
	rawScope string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("limit must not be negative, got: %d", limit)
	}
	scope, err := parseScope(rawScope)
	if err != nil {
		return err
	}

	filter := &domain.ListFilter{Prefix: prefix, Tags: parseTags(tags), Limit: limit}

	var ids []domain.CredentialID
	if scope != nil {
		ids, err = manager.ListScoped(ctx, filter, *scope)
	} else {
		ids, err = manager.List(ctx, filter)
	}
	if err != nil {
		return err
	}

	if format == "json" {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, id.String())
		}
		return writeJSON(writer, map[string]interface{}{"data": out})
	}

	for _, id := range ids {
		if _, err := fmt.Fprintln(writer, id); err != nil {
			return err
		}
	}
	return nil
}

// RunValidateCredential prints the validation status of a credential. A missing
// credential is reported with status not_found, not as an error.
func RunValidateCredential(
	ctx context.Context,
	manager credentialsUsecase.CredentialManager,
	writer io.Writer,
	rawID string,
	rawScope string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	id, err := domain.NewCredentialID(rawID)
	if err != nil {
		return err
	}
	scope, err := parseScope(rawScope)
	if err != nil {
		return err
	}

	var result domain.ValidationResult
	if scope != nil {
		result, err = manager.ValidateScoped(ctx, id, *scope)
	} else {
		result, err = manager.Validate(ctx, id)
	}
	if err != nil {
		return err
	}

	if format == "json" {
		out := map[string]interface{}{
			"id":                   id.String(),
			"valid":                result.Valid,
			"status":               result.Details.Status,
			"rotation_recommended": result.RotationRecommended,
		}
		if result.Details.Reason != "" {
			out["reason"] = result.Details.Reason
		}
		if !result.Details.ExpiredAt.IsZero() {
			out["expired_at"] = result.Details.ExpiredAt
		}
		return writeJSON(writer, out)
	}

	line := fmt.Sprintf("%s: %s", id, result.Details.Status)
	switch {
	case result.Details.Reason != "":
		line += fmt.Sprintf(" (%s)", result.Details.Reason)
	case !result.Details.ExpiredAt.IsZero():
		line += fmt.Sprintf(" (expired at %s)", result.Details.ExpiredAt.Format(time.RFC3339))
	}
	if result.RotationRecommended {
		line += ", rotation recommended"
	}
	_, err = fmt.Fprintln(writer, line)
	return err
}
