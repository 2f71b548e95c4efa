package invites

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orgbase/orgbase/internal/apperrors"
	"github.com/orgbase/orgbase/internal/auth"
	"github.com/orgbase/orgbase/internal/orgs"
)

// InviteView is the invitation as rendered in listings: the stored status
// with expiry folded in, and no token.
type InviteView struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	InvitedBy *uuid.UUID `json:"invited_by,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func toView(inv *Invitation, now time.Time) InviteView {
	return InviteView{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    inv.EffectiveStatus(now),
		InvitedBy: inv.InvitedBy,
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

func writeAccessError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, orgs.ErrOrgNotFound), errors.Is(err, orgs.ErrNotMember):
		apperrors.WriteNotFound(w, r, "Organization not found")
	case errors.Is(err, orgs.ErrInsufficientPermissions):
		apperrors.WriteForbidden(w, r, "Insufficient permissions")
	default:
		return false
	}
	return true
}

type CreateInviteRequest struct {
	Email string    `json:"email"`
	Role  orgs.Role `json:"role"`
}

// HandleCreateInvite handles POST /api/v1/orgs/{org_id}/invites
func HandleCreateInvite(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req CreateInviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.Role == "" {
			req.Role = orgs.RoleMember
		}

		invite, err := svc.Create(ctx, orgID, actorUserID, req.Email, req.Role)
		if err != nil {
			if writeAccessError(w, r, err) {
				return
			}
			if errors.Is(err, ErrInvalidEmail) {
				apperrors.WriteBadRequest(w, r, "Invalid email address")
				return
			}
			if errors.Is(err, orgs.ErrInvalidRole) {
				apperrors.WriteBadRequest(w, r, "Invalid role")
				return
			}
			if errors.Is(err, ErrDuplicateInvite) {
				apperrors.WriteConflict(w, r, "A pending invitation already exists for this email")
				return
			}
			log.Error().Err(err).Msg("Failed to create invitation")
			apperrors.WriteInternalError(w, r, "Failed to create invitation")
			return
		}

		// The token is returned once, on creation.
		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invitation": toView(invite, time.Now().UTC()),
			"token":      invite.Token,
		})
	}
}

// HandleListInvites handles GET /api/v1/orgs/{org_id}/invites
func HandleListInvites(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		list, err := svc.List(ctx, orgID, actorUserID)
		if err != nil {
			if writeAccessError(w, r, err) {
				return
			}
			log.Error().Err(err).Msg("Failed to list invitations")
			apperrors.WriteInternalError(w, r, "Failed to list invitations")
			return
		}

		now := time.Now().UTC()
		views := make([]InviteView, 0, len(list))
		for i := range list {
			views = append(views, toView(&list[i], now))
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, views)
	}
}

// HandleCancelInvite handles DELETE /api/v1/orgs/{org_id}/invites/{invite_id}
func HandleCancelInvite(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		inviteID, err := uuid.Parse(chi.URLParam(r, "invite_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invitation ID")
			return
		}

		if err := svc.Cancel(ctx, orgID, inviteID, actorUserID); err != nil {
			if writeAccessError(w, r, err) {
				return
			}
			if errors.Is(err, ErrInviteNotFound) {
				apperrors.WriteNotFound(w, r, "Invitation not found")
				return
			}
			if errors.Is(err, ErrInviteNotActive) {
				apperrors.WriteConflict(w, r, "Invitation is no longer active")
				return
			}
			log.Error().Err(err).Msg("Failed to cancel invitation")
			apperrors.WriteInternalError(w, r, "Failed to cancel invitation")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"cancelled": true,
		})
	}
}

// HandleResendInvite handles POST /api/v1/orgs/{org_id}/invites/{invite_id}/resend.
// Resending a non-pending invitation returns 200 with resent=false and the
// reason.
func HandleResendInvite(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		inviteID, err := uuid.Parse(chi.URLParam(r, "invite_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invitation ID")
			return
		}

		result, err := svc.Resend(ctx, orgID, inviteID, actorUserID)
		if err != nil {
			if writeAccessError(w, r, err) {
				return
			}
			if errors.Is(err, ErrInviteNotFound) {
				apperrors.WriteNotFound(w, r, "Invitation not found")
				return
			}
			log.Error().Err(err).Msg("Failed to resend invitation")
			apperrors.WriteInternalError(w, r, "Failed to resend invitation")
			return
		}

		body := map[string]any{
			"resent": result.Resent,
		}
		if result.Reason != "" {
			body["reason"] = result.Reason
		}
		if result.Invitation != nil {
			body["invitation"] = toView(result.Invitation, time.Now().UTC())
			if result.Resent {
				body["token"] = result.Invitation.Token
			}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, body)
	}
}

type AcceptInviteRequest struct {
	Token string `json:"token"`
}

// HandleAcceptInvite handles POST /api/v1/invitations/accept
func HandleAcceptInvite(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req AcceptInviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.Token == "" {
			apperrors.WriteBadRequest(w, r, "Token is required")
			return
		}

		invite, err := svc.Accept(ctx, req.Token, userID)
		if err != nil {
			if errors.Is(err, ErrInviteNotFound) {
				apperrors.WriteNotFound(w, r, "Invitation not found")
				return
			}
			if errors.Is(err, ErrInviteNotActive) {
				apperrors.WriteConflict(w, r, "Invitation is no longer active")
				return
			}
			if errors.Is(err, ErrInviteExpired) {
				apperrors.WriteGone(w, r, "Invitation has expired")
				return
			}
			if errors.Is(err, ErrInviteEmailMismatch) {
				apperrors.WriteForbidden(w, r, "Invitation was issued for a different email")
				return
			}
			if errors.Is(err, orgs.ErrOrgNotFound) {
				apperrors.WriteGone(w, r, "Organization no longer exists")
				return
			}
			if errors.Is(err, orgs.ErrInvalidRole) {
				apperrors.WriteConflict(w, r, "Invitation role is no longer assignable")
				return
			}
			log.Error().Err(err).Msg("Failed to accept invitation")
			apperrors.WriteInternalError(w, r, "Failed to accept invitation")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"org_id": invite.OrgID,
			"role":   invite.Role,
		})
	}
}
