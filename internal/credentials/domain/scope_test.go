package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/credentials/internal/errors"
)

func TestNewScopeID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "single segment", raw: "org:acme"},
		{name: "nested segments", raw: "org:acme/team:eng/service:api"},
		{name: "unknown level name", raw: "taem:eng"},
		{name: "empty", raw: "", wantErr: true},
		{name: "leading slash", raw: "/org:acme", wantErr: true},
		{name: "trailing slash", raw: "org:acme/", wantErr: true},
		{name: "empty segment", raw: "org:acme//team:eng", wantErr: true},
		{name: "missing separator", raw: "org:acme/team", wantErr: true},
		{name: "two separators", raw: "org:acme:corp", wantErr: true},
		{name: "empty level", raw: ":acme", wantErr: true},
		{name: "empty value", raw: "org:", wantErr: true},
		{name: "too long", raw: "org:" + strings.Repeat("a", MaxScopeLength), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := NewScopeID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidScope)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				assert.True(t, scope.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, scope.String())
		})
	}
}

func TestScopeID_MatchesExact(t *testing.T) {
	a := MustScopeID("org:acme/team:eng")

	assert.True(t, a.MatchesExact(MustScopeID("org:acme/team:eng")))
	assert.False(t, a.MatchesExact(MustScopeID("org:acme")))
	assert.False(t, a.MatchesExact(MustScopeID("org:acme/team:eng/service:api")))
}

func TestScopeID_MatchesPrefix(t *testing.T) {
	parent := MustScopeID("org:acme/team:eng")

	tests := []struct {
		name  string
		scope string
		want  bool
	}{
		{name: "same scope", scope: "org:acme/team:eng", want: true},
		{name: "child", scope: "org:acme/team:eng/service:api", want: true},
		{name: "grandchild", scope: "org:acme/team:eng/service:api/env:prod", want: true},
		{name: "segment prefix is not a boundary", scope: "org:acme/team:engineering", want: false},
		{name: "sibling", scope: "org:acme/team:ops", want: false},
		{name: "ancestor", scope: "org:acme", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MustScopeID(tt.scope).MatchesPrefix(parent))
		})
	}

	t.Run("zero scope never matches", func(t *testing.T) {
		assert.False(t, ScopeID{}.MatchesPrefix(parent))
		assert.False(t, parent.MatchesPrefix(ScopeID{}))
	})
}

func TestScopeID_Parent(t *testing.T) {
	scope := MustScopeID("org:acme/team:eng/service:api")

	parent, ok := scope.Parent()
	require.True(t, ok)
	assert.Equal(t, "org:acme/team:eng", parent.String())
	assert.Equal(t, 3, scope.Depth())
	assert.Equal(t, []string{"org:acme", "team:eng", "service:api"}, scope.Segments())

	_, ok = MustScopeID("org:acme").Parent()
	assert.False(t, ok)
}

func TestScopeID_JSON(t *testing.T) {
	t.Run("Success_RoundTrip", func(t *testing.T) {
		type wrapper struct {
			Scope *ScopeID `json:"scope,omitempty"`
		}
		scope := MustScopeID("org:acme/team:eng")

		data, err := json.Marshal(wrapper{Scope: &scope})
		require.NoError(t, err)
		assert.JSONEq(t, `{"scope":"org:acme/team:eng"}`, string(data))

		var out wrapper
		require.NoError(t, json.Unmarshal(data, &out))
		require.NotNil(t, out.Scope)
		assert.True(t, out.Scope.MatchesExact(scope))
	})

	t.Run("Error_InvalidScope", func(t *testing.T) {
		var scope ScopeID
		err := json.Unmarshal([]byte(`"org:acme/"`), &scope)
		assert.ErrorIs(t, err, ErrInvalidScope)
	})
}

func TestMustScopeID_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustScopeID("not-a-scope")
	})
}
