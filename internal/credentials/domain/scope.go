package domain

import (
	"fmt"
	"strings"
)

const (
	// MaxScopeLength is the maximum length of a scope in its textual form.
	MaxScopeLength = 512

	scopeSeparator = "/"
	levelSeparator = ":"
)

// ScopeID is a hierarchical namespace such as "org:acme/team:eng/service:api".
//
// Each segment is a "level:value" pair. Level names are not checked against a
// vocabulary, so "taem:eng" is a valid scope distinct from "team:eng".
// The zero value is the absence of a scope.
type ScopeID struct {
	value string
}

// NewScopeID parses and validates a scope. It never truncates or normalizes input.
func NewScopeID(raw string) (ScopeID, error) {
	if raw == "" {
		return ScopeID{}, fmt.Errorf("%w: scope must not be empty", ErrInvalidScope)
	}
	if len(raw) > MaxScopeLength {
		return ScopeID{}, fmt.Errorf(
			"%w: scope length %d exceeds maximum of %d",
			ErrInvalidScope,
			len(raw),
			MaxScopeLength,
		)
	}
	if strings.HasPrefix(raw, scopeSeparator) || strings.HasSuffix(raw, scopeSeparator) {
		return ScopeID{}, fmt.Errorf("%w: scope %q must not start or end with '/'", ErrInvalidScope, raw)
	}

	for i, segment := range strings.Split(raw, scopeSeparator) {
		if segment == "" {
			return ScopeID{}, fmt.Errorf("%w: scope %q has an empty segment at position %d", ErrInvalidScope, raw, i)
		}
		if strings.Count(segment, levelSeparator) != 1 {
			return ScopeID{}, fmt.Errorf(
				"%w: segment %q must contain exactly one ':' separating level and value",
				ErrInvalidScope,
				segment,
			)
		}
		level, value, _ := strings.Cut(segment, levelSeparator)
		if level == "" || value == "" {
			return ScopeID{}, fmt.Errorf("%w: segment %q needs both a level and a value", ErrInvalidScope, segment)
		}
	}

	return ScopeID{value: raw}, nil
}

// MustScopeID is like NewScopeID but panics on invalid input.
func MustScopeID(raw string) ScopeID {
	s, err := NewScopeID(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s ScopeID) String() string {
	return s.value
}

// IsZero reports whether s is the absent scope.
func (s ScopeID) IsZero() bool {
	return s.value == ""
}

// Segments returns the "level:value" parts from root to leaf.
func (s ScopeID) Segments() []string {
	if s.IsZero() {
		return nil
	}
	return strings.Split(s.value, scopeSeparator)
}

// Depth returns the number of segments.
func (s ScopeID) Depth() int {
	return len(s.Segments())
}

// Parent returns the enclosing scope, or false for a root scope.
func (s ScopeID) Parent() (ScopeID, bool) {
	idx := strings.LastIndex(s.value, scopeSeparator)
	if idx < 0 {
		return ScopeID{}, false
	}
	return ScopeID{value: s.value[:idx]}, true
}

// MatchesExact reports whether s and other are the same scope.
func (s ScopeID) MatchesExact(other ScopeID) bool {
	return s.value == other.value
}

// MatchesPrefix reports whether s equals other or lies beneath it.
// Matching happens on segment boundaries, so "org:acme/team:engineering"
// does not match "org:acme/team:eng".
func (s ScopeID) MatchesPrefix(other ScopeID) bool {
	if s.IsZero() || other.IsZero() {
		return false
	}
	if s.value == other.value {
		return true
	}
	return strings.HasPrefix(s.value, other.value+scopeSeparator)
}

// MarshalText implements encoding.TextMarshaler.
func (s ScopeID) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the input.
func (s *ScopeID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ScopeID{}
		return nil
	}
	parsed, err := NewScopeID(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
