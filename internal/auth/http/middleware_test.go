package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authService "github.com/allisson/credentials/internal/auth/service"
)

// countingTokenService counts Argon2id verifications.
type countingTokenService struct {
	authService.TokenService
	verifies atomic.Int64
}

func (s *countingTokenService) VerifyToken(plainToken, tokenHash string) bool {
	s.verifies.Add(1)
	return s.TokenService.VerifyToken(plainToken, tokenHash)
}

func newAuthRouter(t *testing.T) (*gin.Engine, *countingTokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := &countingTokenService{TokenService: authService.NewTokenService()}
	tokenHash, err := tokens.HashToken("crd_valid")
	require.NoError(t, err)

	router := gin.New()
	router.Use(AuthenticationMiddleware(tokenHash, tokens, slog.New(slog.DiscardHandler)))
	router.GET("/v1/credentials", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})
	return router, tokens
}

func doWithAuth(router *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/credentials", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticationMiddleware(t *testing.T) {
	t.Run("Success_ValidToken", func(t *testing.T) {
		router, _ := newAuthRouter(t)

		assert.Equal(t, http.StatusOK, doWithAuth(router, "Bearer crd_valid").Code)
	})

	t.Run("Success_CaseInsensitivePrefix", func(t *testing.T) {
		router, _ := newAuthRouter(t)

		assert.Equal(t, http.StatusOK, doWithAuth(router, "bEaReR crd_valid").Code)
	})

	t.Run("Success_VerifiesOncePerToken", func(t *testing.T) {
		router, tokens := newAuthRouter(t)

		for range 3 {
			require.Equal(t, http.StatusOK, doWithAuth(router, "Bearer crd_valid").Code)
		}
		assert.Equal(t, int64(1), tokens.verifies.Load())
	})

	tests := []struct {
		name   string
		header string
	}{
		{"Error_MissingHeader", ""},
		{"Error_WrongScheme", "Basic crd_valid"},
		{"Error_EmptyToken", "Bearer "},
		{"Error_InvalidToken", "Bearer crd_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newAuthRouter(t)

			w := doWithAuth(router, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "unauthorized")
		})
	}

	t.Run("Error_InvalidTokenNotRemembered", func(t *testing.T) {
		router, tokens := newAuthRouter(t)

		doWithAuth(router, "Bearer crd_invalid")
		doWithAuth(router, "Bearer crd_invalid")
		assert.Equal(t, int64(2), tokens.verifies.Load())
	})
}
