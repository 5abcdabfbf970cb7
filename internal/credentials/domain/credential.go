// Package domain defines the credential model, scope hierarchy and validation rules.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
)

// MaxCredentialIDLength is the maximum length of a credential identifier.
const MaxCredentialIDLength = 255

// CredentialID identifies a credential. It is immutable once created.
type CredentialID string

// NewCredentialID validates raw as a credential identifier.
func NewCredentialID(raw string) (CredentialID, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: id must not be empty", ErrInvalidCredentialID)
	}
	if len(raw) > MaxCredentialIDLength {
		return "", fmt.Errorf(
			"%w: id length %d exceeds maximum of %d",
			ErrInvalidCredentialID,
			len(raw),
			MaxCredentialIDLength,
		)
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' {
			return "", fmt.Errorf("%w: id %q contains whitespace, control characters or '/'", ErrInvalidCredentialID, raw)
		}
	}
	return CredentialID(raw), nil
}

func (id CredentialID) String() string {
	return string(id)
}

// RotationPolicy describes how often a credential should be replaced.
type RotationPolicy struct {
	IntervalSeconds int64 `json:"interval_seconds"`
}

// Interval returns the rotation interval as a duration.
func (p RotationPolicy) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// Metadata is the non-sensitive data persisted next to each encrypted payload.
type Metadata struct {
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Tags           []string        `json:"tags"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	RotationPolicy *RotationPolicy `json:"rotation_policy,omitempty"`
	Scope          *ScopeID        `json:"scope,omitempty"`
}

// HasTag reports whether the tag set contains tag.
func (m *Metadata) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// ScopeString returns the textual scope or an empty string.
func (m *Metadata) ScopeString() string {
	if m.Scope == nil {
		return ""
	}
	return m.Scope.String()
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	out.Tags = slices.Clone(m.Tags)
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		out.ExpiresAt = &t
	}
	if m.RotationPolicy != nil {
		p := *m.RotationPolicy
		out.RotationPolicy = &p
	}
	if m.Scope != nil {
		s := *m.Scope
		out.Scope = &s
	}
	return out
}

// NormalizeTags sorts the tag set and removes duplicates and blanks.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Credential is a plaintext secret with its metadata.
//
// Secret must be zeroed with Zero once the caller is done with it. The String
// method redacts the secret so credentials are safe to log.
type Credential struct {
	Secret   []byte
	Metadata Metadata
}

// NewCredential copies secret into a new credential created now.
func NewCredential(secret []byte) *Credential {
	now := time.Now().UTC()
	return &Credential{
		Secret: slices.Clone(secret),
		Metadata: Metadata{
			CreatedAt:      now,
			LastAccessedAt: now,
			Tags:           []string{},
		},
	}
}

// Clone returns a deep copy that owns its own secret buffer.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	return &Credential{
		Secret:   slices.Clone(c.Secret),
		Metadata: c.Metadata.Clone(),
	}
}

// Zero overwrites the secret with zeros.
func (c *Credential) Zero() {
	if c == nil {
		return
	}
	cryptoDomain.Zero(c.Secret)
}

func (c *Credential) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Credential{Secret: [REDACTED %d bytes], Scope: %q}", len(c.Secret), c.Metadata.ScopeString())
}

// GoString redacts the secret under %#v.
func (c *Credential) GoString() string {
	return c.String()
}

// CurrentFormatVersion is the encryption format version written by this release.
const CurrentFormatVersion uint16 = 1

// EncryptedCredential is what the storage backend persists. The layout of
// Ciphertext and Nonce belongs to the sealer that produced it.
type EncryptedCredential struct {
	FormatVersion uint16
	KeyID         string
	Algorithm     string
	Ciphertext    []byte
	Nonce         []byte
}

// StoredCredential is a storage record: the sealed payload plus its metadata.
type StoredCredential struct {
	Encrypted *EncryptedCredential
	Metadata  Metadata
}

// ListFilter narrows a listing. Empty fields match everything.
type ListFilter struct {
	// Prefix matches the start of the credential id.
	Prefix string
	// Tags must all be present on the credential.
	Tags []string
	// Limit caps the number of ids returned. Zero means unlimited.
	Limit int
}

// Matches reports whether a credential passes the filter.
func (f *ListFilter) Matches(id CredentialID, metadata *Metadata) bool {
	if f == nil {
		return true
	}
	if f.Prefix != "" && !strings.HasPrefix(string(id), f.Prefix) {
		return false
	}
	for _, tag := range f.Tags {
		if metadata == nil || !metadata.HasTag(tag) {
			return false
		}
	}
	return true
}
