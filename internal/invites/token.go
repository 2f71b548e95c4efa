package invites

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// TokenBytes is the entropy of an invitation token; hex-encoded it is
	// exactly 64 characters, the width of the token column.
	TokenBytes = 32
	TokenLen   = TokenBytes * 2
)

// GenerateToken returns a new random invitation token.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidateTokenFormat reports whether token is a well-formed invitation
// token. Used to reject garbage before touching the database.
func ValidateTokenFormat(token string) bool {
	if len(token) != TokenLen {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
