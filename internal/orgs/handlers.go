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
	"github.com/orgbase/orgbase/internal/tenant"
	"github.com/orgbase/orgbase/internal/validation"
)

type CreateOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HandleCreateOrg handles POST /api/v1/orgs
func HandleCreateOrg(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req CreateOrgRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.Name == "" {
			apperrors.WriteBadRequest(w, r, "Name is required")
			return
		}
		if req.Slug == "" {
			req.Slug = validation.SlugFromName(req.Name)
		}
		if err := validation.ValidateSlug(req.Slug); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		org, err := svc.CreateWithOwner(ctx, req.Name, req.Slug, userID)
		if err != nil {
			if errors.Is(err, ErrSlugConflict) {
				apperrors.WriteConflict(w, r, "Organization slug already exists")
				return
			}
			log.Error().Err(err).Msg("Failed to create organization")
			apperrors.WriteInternalError(w, r, "Failed to create organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, org)
	}
}

// HandleListOrgs handles GET /api/v1/orgs
func HandleListOrgs(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		list, err := svc.ListUserOrgs(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list organizations")
			apperrors.WriteInternalError(w, r, "Failed to list organizations")
			return
		}
		if list == nil {
			list = []OrgWithRole{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleGetCurrentOrg handles GET /api/v1/orgs/current
func HandleGetCurrentOrg(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tc := tenant.FromContext(ctx)
		if !tc.Check() {
			apperrors.WriteNotFound(w, r, "No current organization")
			return
		}

		org, err := svc.GetByID(ctx, tc.ID())
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "No current organization")
				return
			}
			log.Error().Err(err).Msg("Failed to get current organization")
			apperrors.WriteInternalError(w, r, "Failed to get current organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, org)
	}
}

// HandleGetOrgBySlug handles GET /api/v1/orgs/by-slug/{slug}. Only members
// can resolve a slug, so slugs are no more probeable than IDs.
func HandleGetOrgBySlug(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		org, err := svc.GetBySlug(ctx, chi.URLParam(r, "slug"))
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get organization")
			apperrors.WriteInternalError(w, r, "Failed to get organization")
			return
		}

		if err := svc.RequireMember(ctx, org.ID, userID); err != nil {
			writeOrgAccessError(w, r, err, "get organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, org)
	}
}

// HandleDeleteOrg handles DELETE /api/v1/orgs/{org_id}. Only the owner may
// delete the organization.
func HandleDeleteOrg(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		if err := svc.RequireMember(ctx, orgID, userID); err != nil {
			writeOrgAccessError(w, r, err, "delete organization")
			return
		}

		if err := svc.DeleteOrg(ctx, orgID, userID); err != nil {
			if errors.Is(err, ErrInsufficientPermissions) {
				apperrors.WriteForbidden(w, r, "Only the owner can delete the organization")
				return
			}
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to delete organization")
			apperrors.WriteInternalError(w, r, "Failed to delete organization")
			return
		}

		tc := tenant.FromContext(ctx)
		if tc.ID() == orgID {
			tc.Forget()
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

// HandleSwitchOrg handles POST /api/v1/orgs/{org_id}/switch. Switching sets
// the tenant context for this request and remembers the choice in the
// session.
func HandleSwitchOrg(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		if err := svc.RequireMember(ctx, orgID, userID); err != nil {
			writeOrgAccessError(w, r, err, "switch organization")
			return
		}

		org, err := svc.GetByID(ctx, orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to switch organization")
			apperrors.WriteInternalError(w, r, "Failed to switch organization")
			return
		}

		tenant.FromContext(ctx).Set(&tenant.CurrentOrg{ID: org.ID, Name: org.Name, Slug: org.Slug})

		apperrors.WriteSuccess(w, r, http.StatusOK, org)
	}
}

// writeOrgAccessError maps membership and permission errors shared by the
// org-scoped handlers. Non-members get a 404 so organization IDs are not
// probeable.
func writeOrgAccessError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, ErrOrgNotFound), errors.Is(err, ErrNotMember):
		apperrors.WriteNotFound(w, r, "Organization not found")
	case errors.Is(err, ErrInsufficientPermissions):
		apperrors.WriteForbidden(w, r, "Insufficient permissions")
	default:
		log.Error().Err(err).Str("action", action).Msg("Organization access check failed")
		apperrors.WriteInternalError(w, r, "Failed to "+action)
	}
}
