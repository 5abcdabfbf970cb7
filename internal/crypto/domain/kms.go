package domain

import "context"

// KMSKeeper encrypts and decrypts small payloads with a key held by a KMS.
// *secrets.Keeper from gocloud.dev satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
