package secure

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
)

var (
	// ErrEmptyKey is returned when sealing a key with no content.
	ErrEmptyKey = errors.New("secure: empty key")

	// ErrDestroyed is returned when using a key after Destroy.
	ErrDestroyed = errors.New("secure: key destroyed")
)

// SealedKey holds a symmetric key inside a memguard enclave.
type SealedKey struct {
	enclave *memguard.Enclave
	size    int

	mu        sync.RWMutex
	destroyed bool
}

// Seal moves raw into a new enclave. memguard wipes raw once it has been
// copied, so callers must not reuse the slice.
func Seal(raw []byte) (*SealedKey, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyKey
	}
	size := len(raw)
	return &SealedKey{
		enclave: memguard.NewEnclave(raw),
		size:    size,
	}, nil
}

// SealBase64 decodes a standard base64 key and seals the result.
func SealBase64(encoded string) (*SealedKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrEmptyKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("secure: decode key: %w", err)
	}
	return Seal(raw)
}

// Size returns the length of the decrypted key in bytes.
func (k *SealedKey) Size() int {
	return k.size
}

// Use decrypts the key into a locked buffer, passes it to fn and wipes the
// buffer when fn returns.
func (k *SealedKey) Use(fn func(key []byte) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.destroyed {
		return ErrDestroyed
	}

	locked, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("secure: open enclave: %w", err)
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Destroy drops the enclave. It is safe to call more than once.
func (k *SealedKey) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return
	}
	k.enclave = nil
	k.destroyed = true
}
