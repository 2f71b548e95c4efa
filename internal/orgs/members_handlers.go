package orgs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orgbase/orgbase/internal/apperrors"
	"github.com/orgbase/orgbase/internal/auth"
)

// HandleListMembers handles GET /api/v1/orgs/{org_id}/members
func HandleListMembers(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		if err := svc.RequireMember(ctx, orgID, userID); err != nil {
			writeOrgAccessError(w, r, err, "list members")
			return
		}

		members, err := svc.ListMembers(ctx, orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}
		if members == nil {
			members = []MemberInfo{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, members)
	}
}

// HandleListMemberRoles handles GET /api/v1/orgs/{org_id}/members/{user_id}/roles
func HandleListMemberRoles(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		targetUserID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		if err := svc.RequireMember(ctx, orgID, actorUserID); err != nil {
			writeOrgAccessError(w, r, err, "list member roles")
			return
		}

		roles, err := svc.MemberRoles(ctx, orgID, targetUserID)
		if err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				apperrors.WriteNotFound(w, r, "Member not found")
				return
			}
			log.Error().Err(err).Msg("Failed to list member roles")
			apperrors.WriteInternalError(w, r, "Failed to list member roles")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user_id": targetUserID,
			"roles":   roles,
		})
	}
}

type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// HandleAddMember handles POST /api/v1/orgs/{org_id}/members
func HandleAddMember(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req AddMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.UserID == uuid.Nil {
			apperrors.WriteBadRequest(w, r, "user_id is required")
			return
		}
		if req.Role == "" {
			req.Role = RoleMember
		}
		if !req.Role.IsAssignable() {
			apperrors.WriteBadRequest(w, r, "Invalid role")
			return
		}

		if err := svc.RequireManager(ctx, orgID, actorUserID); err != nil {
			writeOrgAccessError(w, r, err, "add member")
			return
		}

		if err := svc.AddMember(ctx, orgID, req.UserID, req.Role, nil, actorUserID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				apperrors.WriteNotFound(w, r, "User not found")
				return
			}
			if errors.Is(err, ErrInvalidRole) {
				apperrors.WriteBadRequest(w, r, "Invalid role")
				return
			}
			log.Error().Err(err).Msg("Failed to add member")
			apperrors.WriteInternalError(w, r, "Failed to add member")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"added": true,
		})
	}
}

// HandleRemoveMember handles DELETE /api/v1/orgs/{org_id}/members/{user_id}.
// Managers can remove anyone; any member can remove themselves (leave).
func HandleRemoveMember(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		targetUserID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		if targetUserID == actorUserID {
			if err := svc.RequireMember(ctx, orgID, actorUserID); err != nil {
				writeOrgAccessError(w, r, err, "leave organization")
				return
			}
		} else if err := svc.RequireManager(ctx, orgID, actorUserID); err != nil {
			writeOrgAccessError(w, r, err, "remove member")
			return
		}

		outcome, err := svc.RemoveMember(ctx, orgID, targetUserID, actorUserID)
		if err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				apperrors.WriteNotFound(w, r, "Member not found")
				return
			}
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to remove member")
			apperrors.WriteInternalError(w, r, "Failed to remove member")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, outcome)
	}
}

type TransferOwnershipRequest struct {
	NewOwnerID uuid.UUID `json:"new_owner_id"`
}

// HandleTransferOwnership handles POST /api/v1/orgs/{org_id}/transfer.
// Only the current owner may transfer. A rejected transfer (target not a
// member) returns 200 with transferred=false and the reason.
func HandleTransferOwnership(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req TransferOwnershipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.NewOwnerID == uuid.Nil {
			apperrors.WriteBadRequest(w, r, "new_owner_id is required")
			return
		}

		if err := svc.RequireMember(ctx, orgID, actorUserID); err != nil {
			writeOrgAccessError(w, r, err, "transfer ownership")
			return
		}
		isOwner, err := svc.IsOwner(ctx, orgID, actorUserID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to transfer ownership")
			apperrors.WriteInternalError(w, r, "Failed to transfer ownership")
			return
		}
		if !isOwner {
			apperrors.WriteForbidden(w, r, "Only the owner can transfer ownership")
			return
		}

		result, err := svc.TransferOwnership(ctx, orgID, req.NewOwnerID, actorUserID)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to transfer ownership")
			apperrors.WriteInternalError(w, r, "Failed to transfer ownership")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, result)
	}
}
