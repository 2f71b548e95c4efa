package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orgbase/orgbase/internal/tenant"
)

// Directory returns a tenant.Directory backed by this service, used by the
// tenant middleware to restore the caller's current organization.
func (s *Service) Directory() tenant.Directory {
	return directory{s}
}

type directory struct {
	s *Service
}

func (d directory) MemberOrg(ctx context.Context, userID, orgID uuid.UUID) (*tenant.CurrentOrg, error) {
	var org tenant.CurrentOrg
	err := d.s.pool.QueryRow(ctx, `
		SELECT o.id, o.name, o.slug
		FROM organizations o
		INNER JOIN org_memberships m ON m.org_id = o.id
		WHERE o.id = $1 AND m.user_id = $2 AND o.deleted_at IS NULL
	`, orgID, userID).Scan(&org.ID, &org.Name, &org.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}
	return &org, nil
}

func (d directory) DefaultOrg(ctx context.Context, userID uuid.UUID) (*tenant.CurrentOrg, error) {
	var org tenant.CurrentOrg
	err := d.s.pool.QueryRow(ctx, `
		SELECT o.id, o.name, o.slug
		FROM organizations o
		INNER JOIN org_memberships m ON m.org_id = o.id
		WHERE m.user_id = $1 AND m.is_default AND o.deleted_at IS NULL
	`, userID).Scan(&org.ID, &org.Name, &org.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default organization: %w", err)
	}
	return &org, nil
}
