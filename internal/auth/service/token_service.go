package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/credentials/internal/errors"
)

// tokenLength is the number of random bytes in a generated token.
const tokenLength = 32

type tokenService struct {
	hasher *pwdhash.PasswordHasher
}

// NewTokenService creates a TokenService using the Moderate Argon2id policy.
func NewTokenService() TokenService {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		// Only reachable with an invalid built-in policy.
		panic(err)
	}
	return &tokenService{hasher: hasher}
}

func (s *tokenService) GenerateToken() (string, string, error) {
	randomBytes := make([]byte, tokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random token")
	}
	plainToken := "crd_" + base64.RawURLEncoding.EncodeToString(randomBytes)

	tokenHash, err := s.HashToken(plainToken)
	if err != nil {
		return "", "", err
	}
	return plainToken, tokenHash, nil
}

func (s *tokenService) HashToken(plainToken string) (string, error) {
	tokenHash, err := s.hasher.Hash([]byte(plainToken))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash token")
	}
	return tokenHash, nil
}

// VerifyToken compares in constant time. Malformed hashes never match.
func (s *tokenService) VerifyToken(plainToken, tokenHash string) bool {
	ok, err := s.hasher.Verify([]byte(plainToken), tokenHash)
	return err == nil && ok
}
