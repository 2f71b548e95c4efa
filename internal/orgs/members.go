package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orgbase/orgbase/internal/events"
	"github.com/orgbase/orgbase/internal/rbac"
)

// AddMember adds the user to the organization with the given role. The role
// is validated before any state is touched; an existing membership is kept
// untouched (the call is idempotent) but the role is still granted.
// invitedBy records who invited the user, if anyone.
func (s *Service) AddMember(ctx context.Context, orgID, userID uuid.UUID, role Role, invitedBy *uuid.UUID, actorID uuid.UUID) error {
	if !role.IsAssignable() {
		return ErrInvalidRole
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.AddMemberTx(ctx, tx, orgID, userID, role, invitedBy); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, events.MemberAdded{
		OrgID:       orgID,
		UserID:      userID,
		Role:        string(role),
		InvitedBy:   invitedBy,
		ActorUserID: actorID,
	})
	return nil
}

// AddMemberTx is AddMember's body without the transaction and event, for
// callers that attach membership inside their own transaction (invitation
// acceptance). The caller publishes MemberAdded after committing.
func (s *Service) AddMemberTx(ctx context.Context, q rbac.Querier, orgID, userID uuid.UUID, role Role, invitedBy *uuid.UUID) error {
	if !role.IsAssignable() {
		return ErrInvalidRole
	}

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM organizations WHERE id = $1 AND deleted_at IS NULL
		)
	`, orgID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check organization: %w", err)
	}
	if !exists {
		return ErrOrgNotFound
	}

	if err := rbac.EnsureTeamRoles(ctx, q, orgID, TeamRoleNames...); err != nil {
		return err
	}

	// An existing membership keeps its joined_at, is_default and invited_by.
	_, err = q.Exec(ctx, `
		INSERT INTO org_memberships (org_id, user_id, is_default, invited_by)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (org_id, user_id) DO NOTHING
	`, orgID, userID, invitedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return rbac.AssignRole(ctx, q, userID, string(role), orgID)
}

// MemberRoles returns the names of the roles the user holds within the
// organization, ordered by name. A membership with no role assignment
// reads as member, matching the listings.
func (s *Service) MemberRoles(ctx context.Context, orgID, userID uuid.UUID) ([]string, error) {
	has, err := s.HasMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrMemberNotFound
	}

	names, err := rbac.RoleNames(ctx, s.pool, userID, orgID)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = []string{string(RoleMember)}
	}
	return names, nil
}

// ListMembers returns the organization's members with their emails and
// roles, ordered by join time then user ID.
func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID) ([]MemberInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.user_id, u.email, m.is_default, m.joined_at, m.invited_by,
		       (o.owner_id = m.user_id) AS is_owner,
		       COALESCE((
		           SELECT r.name
		           FROM user_roles ur
		           INNER JOIN roles r ON r.id = ur.role_id
		           WHERE ur.user_id = m.user_id AND r.team_id = m.org_id
		           ORDER BY r.name
		           LIMIT 1
		       ), $2) AS role
		FROM org_memberships m
		INNER JOIN users u ON u.id = m.user_id
		INNER JOIN organizations o ON o.id = m.org_id
		WHERE m.org_id = $1 AND o.deleted_at IS NULL
		ORDER BY m.joined_at, m.user_id
	`, orgID, string(RoleMember))
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []MemberInfo
	for rows.Next() {
		var m MemberInfo
		var role string
		var isOwner *bool
		err := rows.Scan(&m.UserID, &m.Email, &m.IsDefault, &m.JoinedAt, &m.InvitedBy, &isOwner, &role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Role = Role(role)
		m.IsOwner = isOwner != nil && *isOwner
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return out, nil
}

// RemoveMember removes the user from the organization, revoking their
// organization-scoped roles. Removing the owner promotes the longest-tenured
// remaining member (ties broken by user ID) to owner and grants them admin;
// removing the last member soft-deletes the organization. The organization
// row is locked for the duration, so concurrent removals serialize and
// succession is deterministic.
func (s *Service) RemoveMember(ctx context.Context, orgID, targetUserID, actorID uuid.UUID) (*RemovalOutcome, error) {
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

	var isDefault bool
	err = tx.QueryRow(ctx, `
		SELECT is_default FROM org_memberships
		WHERE org_id = $1 AND user_id = $2
		FOR UPDATE
	`, orgID, targetUserID).Scan(&isDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock membership: %w", err)
	}

	if err := rbac.RemoveTeamRoles(ctx, tx, targetUserID, orgID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM org_memberships WHERE org_id = $1 AND user_id = $2
	`, orgID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete membership: %w", err)
	}

	outcome := &RemovalOutcome{
		RemovedUserID: targetUserID,
		WasOwner:      ownerID != nil && *ownerID == targetUserID,
	}

	if outcome.WasOwner {
		var successor uuid.UUID
		err = tx.QueryRow(ctx, `
			SELECT user_id FROM org_memberships
			WHERE org_id = $1
			ORDER BY joined_at, user_id
			LIMIT 1
			FOR UPDATE
		`, orgID).Scan(&successor)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// Last member gone; retire the organization.
			_, err = tx.Exec(ctx, `
				UPDATE organizations
				SET owner_id = NULL, deleted_at = NOW(), updated_at = NOW()
				WHERE id = $1
			`, orgID)
			if err != nil {
				return nil, fmt.Errorf("failed to delete organization: %w", err)
			}
			outcome.OrgDeleted = true
		case err != nil:
			return nil, fmt.Errorf("failed to pick successor: %w", err)
		default:
			_, err = tx.Exec(ctx, `
				UPDATE organizations SET owner_id = $2, updated_at = NOW() WHERE id = $1
			`, orgID, successor)
			if err != nil {
				return nil, fmt.Errorf("failed to promote successor: %w", err)
			}
			if err := rbac.EnsureTeamRoles(ctx, tx, orgID, TeamRoleNames...); err != nil {
				return nil, err
			}
			if err := rbac.AssignRole(ctx, tx, successor, string(RoleAdmin), orgID); err != nil {
				return nil, err
			}
			outcome.NewOwnerID = &successor
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, events.MemberRemoved{
		OrgID:       orgID,
		UserID:      targetUserID,
		ActorUserID: actorID,
		WasOwner:    outcome.WasOwner,
		NewOwnerID:  outcome.NewOwnerID,
	})
	if outcome.OrgDeleted {
		s.publish(ctx, events.OrgDeleted{OrgID: orgID, ActorUserID: actorID})
	}
	return outcome, nil
}
