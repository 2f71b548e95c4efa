package apikeys

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orgbase/orgbase/internal/apperrors"
	"github.com/orgbase/orgbase/internal/auth"
	"github.com/orgbase/orgbase/internal/orgs"
	"github.com/orgbase/orgbase/internal/tenant"
)

func writeOrgAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orgs.ErrOrgNotFound), errors.Is(err, orgs.ErrNotMember):
		apperrors.WriteNotFound(w, r, "Organization not found")
	case errors.Is(err, orgs.ErrInsufficientPermissions):
		apperrors.WriteForbidden(w, r, "Insufficient permissions")
	default:
		log.Error().Err(err).Msg("Organization access check failed")
		apperrors.WriteInternalError(w, r, "Failed to check permissions")
	}
}

type CreateKeyRequest struct {
	Name string `json:"name"`
}

// HandleCreateKey handles POST /api/v1/orgs/{org_id}/api-keys
func HandleCreateKey(svc *Service, orgSvc *orgs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req CreateKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.Name == "" || len(req.Name) > 255 {
			apperrors.WriteBadRequest(w, r, "Name is required and must be at most 255 characters")
			return
		}

		if err := orgSvc.RequireManager(ctx, orgID, userID); err != nil {
			writeOrgAccessError(w, r, err)
			return
		}

		key, token, err := svc.Create(ctx, orgID, userID, req.Name)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create api key")
			apperrors.WriteInternalError(w, r, "Failed to create api key")
			return
		}

		// The plaintext token is returned once, on creation.
		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"api_key": key,
			"token":   token,
		})
	}
}

// HandleListKeys handles GET /api/v1/orgs/{org_id}/api-keys
func HandleListKeys(svc *Service, orgSvc *orgs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		if err := orgSvc.RequireManager(ctx, orgID, userID); err != nil {
			writeOrgAccessError(w, r, err)
			return
		}

		keys, err := svc.List(ctx, orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list api keys")
			apperrors.WriteInternalError(w, r, "Failed to list api keys")
			return
		}
		if keys == nil {
			keys = []APIKey{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, keys)
	}
}

// HandleRevokeKey handles DELETE /api/v1/orgs/{org_id}/api-keys/{key_id}
func HandleRevokeKey(svc *Service, orgSvc *orgs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		keyID, err := uuid.Parse(chi.URLParam(r, "key_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid api key ID")
			return
		}

		if err := orgSvc.RequireManager(ctx, orgID, userID); err != nil {
			writeOrgAccessError(w, r, err)
			return
		}

		if err := svc.Revoke(ctx, orgID, keyID); err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				apperrors.WriteNotFound(w, r, "API key not found")
				return
			}
			log.Error().Err(err).Msg("Failed to revoke api key")
			apperrors.WriteInternalError(w, r, "Failed to revoke api key")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

// HandleServiceOrg handles GET /api/v1/service/org: the organization the
// presented API key belongs to.
func HandleServiceOrg(orgSvc *orgs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tc := tenant.FromContext(ctx)
		if !tc.Check() {
			apperrors.WriteUnauthorized(w, r, "API key required")
			return
		}

		org, err := orgSvc.GetByID(ctx, tc.ID())
		if err != nil {
			if errors.Is(err, orgs.ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to load organization")
			apperrors.WriteInternalError(w, r, "Failed to load organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, org)
	}
}

// HandleServiceMembers handles GET /api/v1/service/members: the member
// listing of the API key's organization.
func HandleServiceMembers(orgSvc *orgs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tc := tenant.FromContext(ctx)
		if !tc.Check() {
			apperrors.WriteUnauthorized(w, r, "API key required")
			return
		}

		members, err := orgSvc.ListMembers(ctx, tc.ID())
		if err != nil {
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}
		if members == nil {
			members = []orgs.MemberInfo{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, members)
	}
}
