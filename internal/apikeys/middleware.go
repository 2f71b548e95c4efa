package apikeys

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/orgbase/orgbase/internal/apperrors"
	"github.com/orgbase/orgbase/internal/orgs"
	"github.com/orgbase/orgbase/internal/tenant"
)

// RequireAPIKey authenticates requests by bearer API key and attaches a
// sessionless tenant context for the key's organization. There is no user
// identity on these requests.
func RequireAPIKey(svc *Service, orgSvc *orgs.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				apperrors.WriteUnauthorized(w, r, "API key required")
				return
			}

			key, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				apperrors.WriteUnauthorized(w, r, "Invalid API key")
				return
			}

			org, err := orgSvc.GetByID(r.Context(), key.OrgID)
			if err != nil {
				// The organization was deleted out from under the key.
				apperrors.WriteUnauthorized(w, r, "Invalid API key")
				return
			}

			tc := tenant.NewContext(nil)
			tc.Set(&tenant.CurrentOrg{ID: org.ID, Name: org.Name, Slug: org.Slug})

			log.Debug().
				Str("org_id", org.ID.String()).
				Str("key_id", key.ID.String()).
				Msg("API key authenticated")

			next.ServeHTTP(w, r.WithContext(tenant.WithContext(r.Context(), tc)))
		})
	}
}
