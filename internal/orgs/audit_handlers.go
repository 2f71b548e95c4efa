package orgs

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orgbase/orgbase/internal/apperrors"
	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/auth"
)

// HandleListOrgAudit handles GET /api/v1/orgs/{org_id}/audit. Restricted to
// owners and admins.
func HandleListOrgAudit(svc *Service, reader *audit.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		if err := svc.RequireManager(ctx, orgID, userID); err != nil {
			writeOrgAccessError(w, r, err, "list audit log")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		items, err := reader.ListByOrg(ctx, orgID, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit log")
			apperrors.WriteInternalError(w, r, "Failed to list audit log")
			return
		}
		if items == nil {
			items = []audit.ListItem{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, items)
	}
}
