// Package http provides the bearer token authentication and rate limiting
// middleware that guard the credential API.
package http

import (
	"crypto/sha256"
	"log/slog"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	authService "github.com/allisson/credentials/internal/auth/service"
	apperrors "github.com/allisson/credentials/internal/errors"
	"github.com/allisson/credentials/internal/httputil"
)

// AuthenticationMiddleware requires "Authorization: Bearer <token>" where the token
// matches tokenHash (Argon2id, PHC format). The bearer prefix is case-insensitive.
//
// Argon2id is deliberately slow, so the SHA-256 digest of every token that passed
// verification is remembered and later requests with the same token skip the hash.
func AuthenticationMiddleware(
	tokenHash string,
	tokenService authService.TokenService,
	logger *slog.Logger,
) gin.HandlerFunc {
	var verified sync.Map // [sha256.Size]byte -> struct{}

	return func(c *gin.Context) {
		plainToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		digest := sha256.Sum256([]byte(plainToken))
		if _, hit := verified.Load(digest); !hit {
			if !tokenService.VerifyToken(plainToken, tokenHash) {
				logger.Debug("authentication failed: invalid token", slog.String("client_ip", c.ClientIP()))
				httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
				c.Abort()
				return
			}
			verified.Store(digest, struct{}{})
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const bearerPrefix = "bearer "
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
