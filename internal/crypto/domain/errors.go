package domain

import (
	"github.com/allisson/credentials/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a data key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to a wrong key, a tampered ciphertext, an invalid nonce
	// or a mismatched associated data. The specific cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrKeysNotSet indicates ENCRYPTION_KEYS is empty.
	ErrKeysNotSet = errors.New("encryption keys not set")

	// ErrActiveKeyIDNotSet indicates ACTIVE_ENCRYPTION_KEY_ID is empty.
	ErrActiveKeyIDNotSet = errors.New("active encryption key id not set")

	// ErrInvalidKeysFormat indicates an ENCRYPTION_KEYS entry is not "id:base64".
	ErrInvalidKeysFormat = errors.New("invalid encryption keys format")

	// ErrInvalidKeyBase64 indicates an ENCRYPTION_KEYS entry is not valid base64.
	ErrInvalidKeyBase64 = errors.New("invalid encryption key base64")

	// ErrActiveKeyNotFound indicates the active key id is not present in the keyring.
	ErrActiveKeyNotFound = errors.New("active encryption key not found")

	// ErrKeyNotFound indicates a ciphertext references a key id the keyring does not hold.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "encryption key not found")

	// ErrUnsupportedFormatVersion indicates a payload written by an unknown format.
	ErrUnsupportedFormatVersion = errors.Wrap(errors.ErrInvalidInput, "unsupported format version")
)
