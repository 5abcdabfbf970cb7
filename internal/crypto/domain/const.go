package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data (AEAD),
// ensuring both confidentiality and authenticity of encrypted data.
//
// Algorithm selection guidelines:
//   - Use AESGCM on modern CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on mobile devices or systems without AES-NI
//   - Both provide equivalent 256-bit security when used correctly
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// Key features:
	//   - 256-bit key size
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Hardware acceleration on modern CPUs
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// Key features:
	//   - 256-bit key size
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Constant-time implementation
	ChaCha20 Algorithm = "chacha20-poly1305"

	// KMS marks payloads sealed directly by a KMS keeper instead of a local data key.
	// The keeper owns the nonce, so the stored nonce is empty.
	KMS Algorithm = "kms"
)

// ParseAlgorithm maps a configuration string to a local AEAD algorithm.
func ParseAlgorithm(raw string) (Algorithm, error) {
	switch Algorithm(raw) {
	case AESGCM, ChaCha20:
		return Algorithm(raw), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

// KeySize is the length in bytes of every data key.
const KeySize = 32
