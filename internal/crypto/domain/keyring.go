package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
)

// DataKey is a 256-bit key that seals credential payloads.
type DataKey struct {
	ID  string
	Key []byte
}

// Keyring holds the data keys in use with one designated as active.
//
// New payloads are sealed with the active key. Older keys stay loaded so that
// payloads sealed before a rotation can still be opened until they are rewrapped.
//
// Thread safety: the keyring uses sync.Map internally for concurrent access.
type Keyring struct {
	activeID string
	keys     sync.Map
}

// NewKeyring builds a keyring from plaintext keys. Key bytes are copied.
func NewKeyring(activeID string, keys ...DataKey) (*Keyring, error) {
	if activeID == "" {
		return nil, ErrActiveKeyIDNotSet
	}

	kr := &Keyring{activeID: activeID}
	for _, k := range keys {
		if len(k.Key) != KeySize {
			kr.Close()
			return nil, fmt.Errorf("%w: key %s must be %d bytes, got %d", ErrInvalidKeySize, k.ID, KeySize, len(k.Key))
		}
		key := make([]byte, KeySize)
		copy(key, k.Key)
		kr.keys.Store(k.ID, &DataKey{ID: k.ID, Key: key})
	}

	if _, ok := kr.Get(activeID); !ok {
		kr.Close()
		return nil, fmt.Errorf("%w: ACTIVE_ENCRYPTION_KEY_ID=%s", ErrActiveKeyNotFound, activeID)
	}
	return kr, nil
}

// ActiveKeyID returns the id of the key used for new payloads.
func (k *Keyring) ActiveKeyID() string {
	return k.activeID
}

// Active returns the key used for new payloads.
func (k *Keyring) Active() *DataKey {
	key, _ := k.Get(k.activeID)
	return key
}

// Get retrieves a key by id.
func (k *Keyring) Get(id string) (*DataKey, bool) {
	if key, ok := k.keys.Load(id); ok {
		return key.(*DataKey), true
	}
	return nil, false
}

// IDs returns the loaded key ids in no particular order.
func (k *Keyring) IDs() []string {
	var ids []string
	k.keys.Range(func(id, _ any) bool {
		ids = append(ids, id.(string))
		return true
	})
	return ids
}

// Close zeroes every key and empties the keyring.
func (k *Keyring) Close() {
	k.keys.Range(func(_, value any) bool {
		Zero(value.(*DataKey).Key)
		return true
	})
	k.activeID = ""
	k.keys.Clear()
}

// LoadKeyring decrypts a key list with the KMS keeper.
//
// raw is a comma-separated list of "id:base64(kms-ciphertext)" entries, the
// format printed by the create-key command. Decrypted key bytes are zeroed once
// copied into the keyring. On error every key loaded so far is zeroed.
func LoadKeyring(ctx context.Context, keeper KMSKeeper, raw, activeID string) (*Keyring, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrKeysNotSet
	}
	if activeID == "" {
		return nil, ErrActiveKeyIDNotSet
	}

	var keys []DataKey
	defer func() {
		for _, k := range keys {
			Zero(k.Key)
		}
	}()

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 || p[0] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKeysFormat, part)
		}
		id := p[0]
		ciphertext, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidKeyBase64, id, err)
		}
		key, err := keeper.Decrypt(ctx, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt encryption key %s with KMS: %w", id, err)
		}
		keys = append(keys, DataKey{ID: id, Key: key})
	}

	return NewKeyring(activeID, keys...)
}
