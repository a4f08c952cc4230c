package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// APIKeyTag is the constant literal prefix on every issued key, so
// credential-shaped strings can be recognized before any store access.
const APIKeyTag = "sk-"

const (
	// apiKeyRandomBytes is the amount of random material per key.
	// 16 bytes = 32 hex chars, total key length 35.
	apiKeyRandomBytes = 16

	// DisplayPrefixLen and DisplaySuffixLen bound the non-secret
	// fragments kept for masked display and candidate routing.
	DisplayPrefixLen = 8
	DisplaySuffixLen = 4
)

// GenerateAPIKey produces a new bearer secret from a cryptographically
// secure random source. Format: sk-<32 random hex characters>.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return APIKeyTag + hex.EncodeToString(buf), nil
}

// KeyPrefix returns the short non-secret leading fragment of a key.
func KeyPrefix(key string) string {
	if len(key) < DisplayPrefixLen {
		return key
	}
	return key[:DisplayPrefixLen]
}

// KeySuffix returns the short non-secret trailing fragment of a key.
func KeySuffix(key string) string {
	if len(key) < DisplaySuffixLen {
		return key
	}
	return key[len(key)-DisplaySuffixLen:]
}

// MaskKey builds the masked display form from the stored fragments.
func MaskKey(prefix, suffix string) string {
	return prefix + "..." + suffix
}

// ValidKeyFormat reports whether a presented value is even shaped like
// an issued key. Shape rejection is cheap and happens before any
// credential scan.
func ValidKeyFormat(key string) bool {
	if !strings.HasPrefix(key, APIKeyTag) {
		return false
	}
	return len(key) == len(APIKeyTag)+apiKeyRandomBytes*2
}
