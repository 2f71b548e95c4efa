package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orgbase/orgbase/internal/events"
	"github.com/orgbase/orgbase/internal/rbac"
)

// TransferOwnership makes newOwnerID the organization's owner and grants
// them admin. A transfer to a non-member, or to the current owner, is
// rejected with a reasoned result rather than applied partially or
// silently dropped. The organization row is locked so transfers serialize
// with member removals.
func (s *Service) TransferOwnership(ctx context.Context, orgID, newOwnerID, actorID uuid.UUID) (*TransferResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT owner_id FROM organizations
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, orgID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock organization: %w", err)
	}

	result := &TransferResult{PreviousOwnerID: ownerID, NewOwnerID: newOwnerID}

	if ownerID != nil && *ownerID == newOwnerID {
		result.Reason = TransferReasonSameOwner
		return result, nil
	}

	var isMember bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM org_memberships WHERE org_id = $1 AND user_id = $2
		)
	`, orgID, newOwnerID).Scan(&isMember)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		result.Reason = TransferReasonNotMember
		return result, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE organizations SET owner_id = $2, updated_at = NOW() WHERE id = $1
	`, orgID, newOwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update owner: %w", err)
	}

	if err := rbac.EnsureTeamRoles(ctx, tx, orgID, TeamRoleNames...); err != nil {
		return nil, err
	}
	if err := rbac.AssignRole(ctx, tx, newOwnerID, string(RoleAdmin), orgID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result.Transferred = true
	s.publish(ctx, events.OwnershipTransferred{
		OrgID:           orgID,
		PreviousOwnerID: ownerID,
		NewOwnerID:      newOwnerID,
		ActorUserID:     actorID,
	})
	return result, nil
}
