package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// APIKeyPrefix marks keys issued by the gateway.
const APIKeyPrefix = "ask_"

// GenerateAPIKey returns a new random API key. Only its hash is ever stored.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return APIKeyPrefix + hex.EncodeToString(b), nil
}

// HashAPIKey returns the lookup hash for an API key.
func HashAPIKey(key string) string {
	return SHA256Hex([]byte(strings.TrimSpace(key)))
}
