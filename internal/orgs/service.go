// Package orgs implements organizations, memberships, ownership and the
// membership lifecycle around them. An organization is the tenant unit:
// its ID doubles as the team ID for role scoping in internal/rbac.
package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgbase/orgbase/internal/events"
	"github.com/orgbase/orgbase/internal/rbac"
	"github.com/orgbase/orgbase/internal/validation"
)

// Service owns organization and membership persistence.
type Service struct {
	pool *pgxpool.Pool
	bus  *events.Bus
}

// NewService creates the organization service. bus may be nil when no
// listeners are wired (tests).
func NewService(pool *pgxpool.Pool, bus *events.Bus) *Service {
	return &Service{pool: pool, bus: bus}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// Pool exposes the underlying connection pool for services that join
// organization transactions (invitations).
func (s *Service) Pool() *pgxpool.Pool {
	return s.pool
}

const orgColumns = `id, name, slug, owner_id, settings, created_at, updated_at, deleted_at`

func scanOrg(row pgx.Row) (*Org, error) {
	var org Org
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.Settings,
		&org.CreatedAt, &org.UpdatedAt, &org.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByID returns the organization, excluding soft-deleted ones.
func (s *Service) GetByID(ctx context.Context, orgID uuid.UUID) (*Org, error) {
	org, err := scanOrg(s.pool.QueryRow(ctx, `
		SELECT `+orgColumns+`
		FROM organizations
		WHERE id = $1 AND deleted_at IS NULL
	`, orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetBySlug returns the organization with the given slug, excluding
// soft-deleted ones.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Org, error) {
	org, err := scanOrg(s.pool.QueryRow(ctx, `
		SELECT `+orgColumns+`
		FROM organizations
		WHERE slug = $1 AND deleted_at IS NULL
	`, validation.NormalizeSlug(slug)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// CreateWithOwner creates an organization with the user as owner and first
// member. The organization's roles are provisioned and the owner is granted
// admin within it.
func (s *Service) CreateWithOwner(ctx context.Context, name, slug string, ownerID uuid.UUID) (*Org, error) {
	return s.create(ctx, name, slug, ownerID, false, false)
}

// CreatePersonalOrg creates the user's personal default organization, named
// from nameTemplate (one %s verb, filled with the mailbox part of the
// email). Slug collisions are resolved with a random suffix.
func (s *Service) CreatePersonalOrg(ctx context.Context, userID uuid.UUID, email, nameTemplate string) (*Org, error) {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	name := fmt.Sprintf(nameTemplate, local)

	slug := validation.SlugFromName(local)
	if validation.ValidateSlug(slug) != nil {
		slug = "org-" + uuid.NewString()[:8]
	}

	org, err := s.create(ctx, name, slug, userID, true, true)
	for attempt := 0; errors.Is(err, ErrSlugConflict) && attempt < 3; attempt++ {
		org, err = s.create(ctx, name, slug+"-"+uuid.NewString()[:8], userID, true, true)
	}
	return org, err
}

func (s *Service) create(ctx context.Context, name, slug string, ownerID uuid.UUID, personal, isDefault bool) (*Org, error) {
	slug = validation.NormalizeSlug(slug)
	if err := validation.ValidateSlug(slug); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	org, err := scanOrg(tx.QueryRow(ctx, `
		INSERT INTO organizations (name, slug, owner_id)
		VALUES ($1, $2, $3)
		RETURNING `+orgColumns, name, slug, ownerID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if err := rbac.EnsureTeamRoles(ctx, tx, org.ID, TeamRoleNames...); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO org_memberships (org_id, user_id, is_default)
		VALUES ($1, $2, $3)
	`, org.ID, ownerID, isDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := rbac.AssignRole(ctx, tx, ownerID, string(RoleAdmin), org.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, events.OrgCreated{
		OrgID:       org.ID,
		Slug:        org.Slug,
		OwnerUserID: ownerID,
		Personal:    personal,
	})
	return org, nil
}

// DeleteOrg soft-deletes the organization. Only the owner may delete it;
// memberships and history are kept but the organization disappears from
// every read path. Pending invitations are cancelled so their tokens stop
// working.
func (s *Service) DeleteOrg(ctx context.Context, orgID, actorID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT owner_id FROM organizations
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, orgID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrgNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock organization: %w", err)
	}
	if ownerID == nil || *ownerID != actorID {
		return ErrInsufficientPermissions
	}

	_, err = tx.Exec(ctx, `
		UPDATE organizations SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1
	`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE org_invitations
		SET status = 'cancelled', updated_at = NOW()
		WHERE org_id = $1 AND status = 'pending'
	`, orgID)
	if err != nil {
		return fmt.Errorf("failed to cancel pending invitations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, events.OrgDeleted{OrgID: orgID, ActorUserID: actorID})
	return nil
}

// ListUserOrgs returns every organization the user belongs to, with the
// user's role in each, ordered by name.
func (s *Service) ListUserOrgs(ctx context.Context, userID uuid.UUID) ([]OrgWithRole, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.name, o.slug, o.owner_id, o.settings, o.created_at, o.updated_at,
		       m.is_default,
		       COALESCE((
		           SELECT r.name
		           FROM user_roles ur
		           INNER JOIN roles r ON r.id = ur.role_id
		           WHERE ur.user_id = m.user_id AND r.team_id = o.id
		           ORDER BY r.name
		           LIMIT 1
		       ), $2) AS role
		FROM organizations o
		INNER JOIN org_memberships m ON m.org_id = o.id
		WHERE m.user_id = $1 AND o.deleted_at IS NULL
		ORDER BY o.name, o.id
	`, userID, string(RoleMember))
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []OrgWithRole
	for rows.Next() {
		var o OrgWithRole
		var role string
		err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.Settings,
			&o.CreatedAt, &o.UpdatedAt, &o.IsDefault, &role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		o.Role = Role(role)
		o.IsOwner = o.OwnerID != nil && *o.OwnerID == userID
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}
	return out, nil
}

// HasMember reports whether the user is currently a member of the
// organization.
func (s *Service) HasMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var has bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM org_memberships WHERE org_id = $1 AND user_id = $2
		)
	`, orgID, userID).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return has, nil
}

// IsOwner reports whether the user owns the organization.
func (s *Service) IsOwner(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var is bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM organizations
			WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		)
	`, orgID, userID).Scan(&is)
	if err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}
	return is, nil
}

// RequireMember returns ErrOrgNotFound if the organization doesn't exist
// and ErrNotMember if the user doesn't belong to it.
func (s *Service) RequireMember(ctx context.Context, orgID, userID uuid.UUID) error {
	if _, err := s.GetByID(ctx, orgID); err != nil {
		return err
	}
	has, err := s.HasMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if !has {
		return ErrNotMember
	}
	return nil
}

// RequireManager verifies the user can manage the organization's membership:
// owners and members holding the admin role qualify. Returns ErrOrgNotFound,
// ErrNotMember or ErrInsufficientPermissions accordingly.
func (s *Service) RequireManager(ctx context.Context, orgID, userID uuid.UUID) error {
	org, err := s.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org.OwnerID != nil && *org.OwnerID == userID {
		return nil
	}
	has, err := s.HasMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if !has {
		return ErrNotMember
	}
	isAdmin, err := rbac.HasRole(ctx, s.pool, userID, string(RoleAdmin), orgID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrInsufficientPermissions
	}
	return nil
}
