package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// KeyPrefix marks generated keys so secret scanners can spot them.
	KeyPrefix = "fbk_"

	keyBytes = 32
)

// GenerateKey creates a new API key and returns the plaintext key, its
// SHA-256 hash, and a display prefix safe to log.
func GenerateKey() (fullKey, hash, displayPrefix string, err error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	fullKey = KeyPrefix + hex.EncodeToString(buf)
	return fullKey, HashKey(fullKey), DisplayPrefix(fullKey), nil
}

// HashKey returns the hex-encoded SHA-256 digest of a plaintext API key.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// DisplayPrefix returns the first 8 and last 4 characters of key.
func DisplayPrefix(key string) string {
	if len(key) <= 16 {
		return key[:min(4, len(key))] + "..."
	}
	return key[:8] + "..." + key[len(key)-4:]
}
