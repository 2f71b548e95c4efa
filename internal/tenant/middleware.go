package tenant

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Directory resolves organizations for tenant restoration. Implemented by
// the organization service.
type Directory interface {
	// MemberOrg returns the organization if it exists (not deleted) and the
	// user is currently a member; nil otherwise.
	MemberOrg(ctx context.Context, userID, orgID uuid.UUID) (*CurrentOrg, error)

	// DefaultOrg returns the user's flagged default organization, or nil if
	// the user has none.
	DefaultOrg(ctx context.Context, userID uuid.UUID) (*CurrentOrg, error)
}

// Middleware restores the tenant context for each authenticated request:
// the session-remembered organization wins if the user still belongs to it
// (a stale value is discarded), otherwise the user's default organization.
// Unauthenticated requests get an empty context.
//
// currentUser extracts the authenticated user ID from the request context;
// uuid.Nil means unauthenticated.
func Middleware(store *SessionStore, dir Directory, currentUser func(context.Context) uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := currentUser(r.Context())
			if userID == uuid.Nil {
				ctx := WithContext(r.Context(), NewContext(nil))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			sess := store.Open(w, r)
			tc := NewContext(sess)
			initForUser(r.Context(), tc, sess, dir, userID)

			ctx := WithContext(r.Context(), tc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// initForUser restores the tenant context for a user. Resolution failures
// degrade to an empty context; they never fail the request.
func initForUser(ctx context.Context, tc *Context, sess *Session, dir Directory, userID uuid.UUID) {
	if orgID, ok := sess.RememberedOrg(); ok {
		org, err := dir.MemberOrg(ctx, userID, orgID)
		if err != nil {
			log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("org_id", orgID.String()).
				Msg("Failed to restore tenant from session")
		} else if org != nil {
			tc.Set(org)
			return
		} else {
			// The user no longer belongs to the remembered organization.
			sess.ForgetOrg()
		}
	}

	org, err := dir.DefaultOrg(ctx, userID)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Msg("Failed to resolve default organization")
		return
	}
	if org != nil {
		tc.Set(org)
	}
}
