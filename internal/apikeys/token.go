package apikeys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// TokenPrefix is the prefix for all Orgbase API keys.
	TokenPrefix = "obk_"

	// TokenBytes is the number of random bytes in a token.
	TokenBytes = 32
)

// GenerateToken creates a new API key token in the form obk_<base64url>.
// Returns the plaintext token (shown once) and its SHA256 hash (stored).
func GenerateToken() (token string, hash []byte, err error) {
	randomBytes := make([]byte, TokenBytes)
	_, err = rand.Read(randomBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = TokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	hash = HashToken(token)
	return token, hash, nil
}

// HashToken computes the SHA256 hash of a token for storage.
func HashToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

// ValidateTokenFormat checks if a token has the correct format.
func ValidateTokenFormat(token string) bool {
	if len(token) < len(TokenPrefix) {
		return false
	}
	if token[:len(TokenPrefix)] != TokenPrefix {
		return false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token[len(TokenPrefix):])
	if err != nil {
		return false
	}
	return len(decoded) == TokenBytes
}
