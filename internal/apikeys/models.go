// Package apikeys implements organization-scoped API keys for
// machine-to-machine access. A key authenticates requests as its
// organization; such requests carry a tenant context without a cookie
// session.
package apikeys

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrKeyNotFound is returned when no key matches
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyRevoked is returned when the key has been revoked
	ErrKeyRevoked = errors.New("api key has been revoked")
)

// APIKey is a row in api_keys. The plaintext token is never stored.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"org_id"`
	Name       string     `json:"name"`
	CreatedBy  *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}
