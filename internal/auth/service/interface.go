// Package service provides API token generation and Argon2id verification.
package service

// TokenService issues API bearer tokens and verifies them against their stored hash.
type TokenService interface {
	// GenerateToken returns a random token and its Argon2id hash.
	GenerateToken() (plainToken string, tokenHash string, err error)
	// HashToken hashes plainToken with Argon2id in PHC format.
	HashToken(plainToken string) (string, error)
	// VerifyToken reports whether plainToken matches tokenHash.
	VerifyToken(plainToken, tokenHash string) bool
}
