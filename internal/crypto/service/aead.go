package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/allisson/credentials/internal/crypto/domain"
)

// aeadCipher implements AEAD on top of a standard library cipher.AEAD.
//
// A fresh random nonce is drawn for every Encrypt call and returned next to the
// ciphertext; the authentication tag is appended to the ciphertext. Instances are
// stateless and safe for concurrent use.
type aeadCipher struct {
	alg  cryptoDomain.Algorithm
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher. The key must be 32 bytes.
func NewAESGCM(key []byte) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &aeadCipher{alg: cryptoDomain.AESGCM, aead: aead}, nil
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher. The key must be 32 bytes.
func NewChaCha20Poly1305(key []byte) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}
	return &aeadCipher{alg: cryptoDomain.ChaCha20, aead: aead}, nil
}

// Encrypt seals plaintext bound to aad and returns the ciphertext and its nonce.
func (c *aeadCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = c.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext. Any authentication failure, including a different aad,
// yields ErrDecryptionFailed without further detail.
func (c *aeadCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// Algorithm reports which algorithm the cipher implements.
func (c *aeadCipher) Algorithm() cryptoDomain.Algorithm {
	return c.alg
}
