package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Key size constants (in bytes before encoding).
const (
	// KeySize128 provides 128 bits of entropy.
	KeySize128 = 16
	// KeySize256 provides 256 bits of entropy.
	KeySize256 = 32
)

// RandomBytes returns size bytes from crypto/rand.
func RandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("key size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return buf, nil
}

// GenerateSecretKey creates a random partner secret key in the form the
// authority issues them: standard base64 with padding.
func GenerateSecretKey(size int) (string, error) {
	buf, err := RandomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// MustGenerateSecretKey is like GenerateSecretKey but panics on error.
// Use this only in tests and fixtures.
func MustGenerateSecretKey(size int) string {
	key, err := GenerateSecretKey(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate secret key: %v", err))
	}
	return key
}

// MustRandomBytes is like RandomBytes but panics on error.
func MustRandomBytes(size int) []byte {
	buf, err := RandomBytes(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate random bytes: %v", err))
	}
	return buf
}
