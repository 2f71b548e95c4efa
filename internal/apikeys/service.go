package apikeys

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Service owns API key persistence.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

const keyColumns = `id, org_id, name, created_by, created_at, last_used_at, revoked_at`

func scanKey(row pgx.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(&k.ID, &k.OrgID, &k.Name, &k.CreatedBy, &k.CreatedAt, &k.LastUsedAt, &k.RevokedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// Create issues a new API key for the organization. The plaintext token is
// returned once and never stored.
func (s *Service) Create(ctx context.Context, orgID, createdBy uuid.UUID, name string) (*APIKey, string, error) {
	token, hash, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}

	key, err := scanKey(s.pool.QueryRow(ctx, `
		INSERT INTO api_keys (org_id, name, token_hash, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+keyColumns, orgID, name, hash, createdBy))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create api key: %w", err)
	}
	return key, token, nil
}

// List returns the organization's keys, newest first. Revoked keys are
// included so their history stays visible.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+keyColumns+`
		FROM api_keys
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var out []APIKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		out = append(out, *key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}
	return out, nil
}

// Revoke marks the key revoked. Revoking an already-revoked key is a no-op.
func (s *Service) Revoke(ctx context.Context, orgID, keyID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE api_keys
		SET revoked_at = NOW()
		WHERE id = $1 AND org_id = $2 AND revoked_at IS NULL
	`, keyID, orgID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM api_keys WHERE id = $1 AND org_id = $2)
		`, keyID, orgID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check api key: %w", err)
		}
		if !exists {
			return ErrKeyNotFound
		}
	}
	return nil
}

// Authenticate resolves a plaintext token to its key. Returns
// ErrKeyNotFound for unknown or malformed tokens and ErrKeyRevoked for
// revoked ones. last_used_at is updated best-effort.
func (s *Service) Authenticate(ctx context.Context, token string) (*APIKey, error) {
	if !ValidateTokenFormat(token) {
		return nil, ErrKeyNotFound
	}

	key, err := scanKey(s.pool.QueryRow(ctx, `
		SELECT `+keyColumns+`
		FROM api_keys
		WHERE token_hash = $1
	`, HashToken(token)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if key.RevokedAt != nil {
		return nil, ErrKeyRevoked
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = NOW() WHERE id = $1
	`, key.ID); err != nil {
		log.Debug().Err(err).Msg("Failed to touch api key last_used_at")
	}
	return key, nil
}
