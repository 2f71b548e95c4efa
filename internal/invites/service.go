package invites

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgbase/orgbase/internal/events"
	"github.com/orgbase/orgbase/internal/orgs"
)

// Service owns invitation persistence and the acceptance flow.
type Service struct {
	pool *pgxpool.Pool
	orgs *orgs.Service
	bus  *events.Bus
	ttl  time.Duration
}

// NewService creates the invitation service. ttl is the validity window of
// newly created (and resent) invitations.
func NewService(pool *pgxpool.Pool, orgSvc *orgs.Service, bus *events.Bus, ttl time.Duration) *Service {
	return &Service{pool: pool, orgs: orgSvc, bus: bus, ttl: ttl}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > 320 {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

const inviteColumns = `id, org_id, email, role, status, token, invited_by, expires_at, accepted_at, created_at, updated_at`

func scanInvite(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &inv.Status, &inv.Token,
		&inv.InvitedBy, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// CHAR(64) comes back space-padded on shorter values; tokens never are,
	// but normalize anyway.
	inv.Token = strings.TrimRight(inv.Token, " ")
	return &inv, nil
}

// Create issues a pending invitation for email to join the organization
// with the given role. The actor must be able to manage members. At most
// one pending invitation may exist per address per organization.
func (s *Service) Create(ctx context.Context, orgID, actorUserID uuid.UUID, email string, role orgs.Role) (*Invitation, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.IsAssignable() {
		return nil, orgs.ErrInvalidRole
	}

	if err := s.orgs.RequireManager(ctx, orgID, actorUserID); err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var invite *Invitation
	for attempt := 0; attempt < 3; attempt++ {
		token, err := GenerateToken()
		if err != nil {
			return nil, err
		}
		expiresAt := time.Now().UTC().Add(s.ttl)

		invite, err = scanInvite(s.pool.QueryRow(ctx, `
			INSERT INTO org_invitations (org_id, email, role, token, invited_by, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+inviteColumns, orgID, email, string(role), token, actorUserID, expiresAt))
		if err == nil {
			break
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "org_invitations_one_pending" {
				return nil, ErrDuplicateInvite
			}
			// Token collision (extremely unlikely); retry.
			invite = nil
			continue
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	if invite == nil {
		return nil, fmt.Errorf("failed to create invitation: token collision retry exhausted")
	}

	s.publish(ctx, events.InviteSent{
		InviteID:     invite.ID,
		OrgID:        orgID,
		OrgName:      org.Name,
		Email:        email,
		Role:         string(role),
		InvitedBy:    actorUserID,
		ExpiresAt:    invite.ExpiresAt,
		ExistingUser: s.userExists(ctx, email),
	})
	return invite, nil
}

func (s *Service) userExists(ctx context.Context, email string) bool {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = $1)
	`, email).Scan(&exists)
	return err == nil && exists
}

// List returns the organization's invitations, newest first. The actor
// must be able to manage members.
func (s *Service) List(ctx context.Context, orgID, actorUserID uuid.UUID) ([]Invitation, error) {
	if err := s.orgs.RequireManager(ctx, orgID, actorUserID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+inviteColumns+`
		FROM org_invitations
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}
	return out, nil
}

// Cancel marks a pending invitation cancelled. Cancelling an invitation
// that was already accepted or cancelled returns ErrInviteNotActive.
func (s *Service) Cancel(ctx context.Context, orgID, inviteID, actorUserID uuid.UUID) error {
	if err := s.orgs.RequireManager(ctx, orgID, actorUserID); err != nil {
		return err
	}

	var email string
	err := s.pool.QueryRow(ctx, `
		UPDATE org_invitations
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND org_id = $2 AND status = $4
		RETURNING email
	`, inviteID, orgID, StatusCancelled, StatusPending).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM org_invitations WHERE id = $1 AND org_id = $2)
		`, inviteID, orgID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check invitation: %w", err)
		}
		if !exists {
			return ErrInviteNotFound
		}
		return ErrInviteNotActive
	}
	if err != nil {
		return fmt.Errorf("failed to cancel invitation: %w", err)
	}

	s.publish(ctx, events.InviteCancelled{
		InviteID:    inviteID,
		OrgID:       orgID,
		Email:       email,
		ActorUserID: actorUserID,
	})
	return nil
}

// Resend regenerates a pending invitation's token and restarts its expiry
// window. An invitation that is no longer pending is not touched; the
// result says why.
func (s *Service) Resend(ctx context.Context, orgID, inviteID, actorUserID uuid.UUID) (*ResendResult, error) {
	if err := s.orgs.RequireManager(ctx, orgID, actorUserID); err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invite, err := scanInvite(tx.QueryRow(ctx, `
		SELECT `+inviteColumns+`
		FROM org_invitations
		WHERE id = $1 AND org_id = $2
		FOR UPDATE
	`, inviteID, orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	if !invite.IsPending() {
		return &ResendResult{Reason: ResendReasonNotPending, Invitation: invite}, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(s.ttl)

	invite, err = scanInvite(tx.QueryRow(ctx, `
		UPDATE org_invitations
		SET token = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+inviteColumns, inviteID, token, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to resend invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, events.InviteResent{
		InviteID:     invite.ID,
		OrgID:        orgID,
		OrgName:      org.Name,
		Email:        invite.Email,
		Role:         invite.Role,
		ActorUserID:  actorUserID,
		ExpiresAt:    invite.ExpiresAt,
		ExistingUser: s.userExists(ctx, invite.Email),
	})
	return &ResendResult{Resent: true, Invitation: invite}, nil
}

// Accept redeems the invitation token for the user: the membership is
// created (with the invitation's role) and the invitation is marked
// accepted, atomically. The accepting user's email must match the
// invitation's, case-insensitively.
func (s *Service) Accept(ctx context.Context, token string, userID uuid.UUID) (*Invitation, error) {
	if !ValidateTokenFormat(token) {
		return nil, ErrInviteNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invite, err := scanInvite(tx.QueryRow(ctx, `
		SELECT `+inviteColumns+`
		FROM org_invitations
		WHERE token = $1
		FOR UPDATE
	`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	now := time.Now().UTC()
	if !invite.IsPending() {
		return nil, ErrInviteNotActive
	}
	if invite.IsExpired(now) {
		return nil, ErrInviteExpired
	}

	role := orgs.Role(invite.Role)
	if !role.IsAssignable() {
		return nil, orgs.ErrInvalidRole
	}

	var userEmail string
	err = tx.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&userEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !strings.EqualFold(userEmail, invite.Email) {
		return nil, ErrInviteEmailMismatch
	}

	if err := s.orgs.AddMemberTx(ctx, tx, invite.OrgID, userID, role, invite.InvitedBy); err != nil {
		return nil, err
	}

	invite, err = scanInvite(tx.QueryRow(ctx, `
		UPDATE org_invitations
		SET status = $2, accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING `+inviteColumns, invite.ID, StatusAccepted))
	if err != nil {
		return nil, fmt.Errorf("failed to mark invitation accepted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, events.MemberAdded{
		OrgID:       invite.OrgID,
		UserID:      userID,
		Role:        invite.Role,
		InvitedBy:   invite.InvitedBy,
		ActorUserID: userID,
	})
	s.publish(ctx, events.InviteAccepted{
		InviteID:    invite.ID,
		OrgID:       invite.OrgID,
		Email:       invite.Email,
		Role:        invite.Role,
		ActorUserID: userID,
	})
	return invite, nil
}
