package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/orgbase/orgbase/internal/apikeys"
	"github.com/orgbase/orgbase/internal/apperrors"
	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/auth"
	"github.com/orgbase/orgbase/internal/config"
	"github.com/orgbase/orgbase/internal/events"
	"github.com/orgbase/orgbase/internal/invites"
	"github.com/orgbase/orgbase/internal/notify"
	"github.com/orgbase/orgbase/internal/orgs"
	"github.com/orgbase/orgbase/internal/telemetry"
	"github.com/orgbase/orgbase/internal/tenant"
)

// NewRouter wires services, event listeners, middleware and routes.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *chi.Mux {
	secure := !cfg.IsDev()

	bus := events.NewBus()
	auditor := audit.NewWriter(pool)
	reader := audit.NewReader(pool)
	orgSvc := orgs.NewService(pool, bus)
	inviteSvc := invites.NewService(pool, orgSvc, bus, time.Duration(cfg.InviteTTLDays)*24*time.Hour)
	keySvc := apikeys.NewService(pool)

	bus.Subscribe(audit.NewListener(auditor))
	bus.Subscribe(telemetry.NewListener())

	notifier := notify.NewClient(cfg.NotifyWebhookURL, cfg.NotifyTimeoutMS)
	if notifier.Enabled() {
		bus.Subscribe(notify.NewListener(notifier, cfg.BaseURL))
	} else {
		log.Info().Msg("Webhook notifications disabled (no URL configured)")
	}

	sessionStore := tenant.NewSessionStore(cfg.SessionSecret, cfg.SessionDays, secure)

	provisionOrg := func(ctx context.Context, userID uuid.UUID, email string) error {
		_, err := orgSvc.CreatePersonalOrg(ctx, userID, email, cfg.PersonalOrgTemplate)
		return err
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(apperrors.RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware(cfg.JWTSecret))
	r.Use(tenant.Middleware(sessionStore, orgSvc.Directory(), auth.GetUserID))

	// Health checks (no authentication)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/signup", auth.HandleSignup(pool, auditor, provisionOrg, cfg.JWTSecret, cfg.SessionDays, secure))
		r.With(LoginRateLimitMiddleware()).Post("/login", auth.HandleLogin(pool, auditor, cfg.JWTSecret, cfg.SessionDays, secure))
		r.With(auth.RequireAuth).Post("/logout", auth.HandleLogout())
		r.With(auth.RequireAuth).Get("/me", auth.HandleMe(pool))
	})

	// Organizations (session-authenticated)
	r.Route("/api/v1/orgs", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware())
		r.Use(auth.RequireAuth)

		r.Post("/", orgs.HandleCreateOrg(orgSvc))
		r.Get("/", orgs.HandleListOrgs(orgSvc))
		r.Get("/current", orgs.HandleGetCurrentOrg(orgSvc))
		r.Get("/by-slug/{slug}", orgs.HandleGetOrgBySlug(orgSvc))
		r.Delete("/{org_id}", orgs.HandleDeleteOrg(orgSvc))
		r.Post("/{org_id}/switch", orgs.HandleSwitchOrg(orgSvc))

		r.Get("/{org_id}/members", orgs.HandleListMembers(orgSvc))
		r.Post("/{org_id}/members", orgs.HandleAddMember(orgSvc))
		r.Get("/{org_id}/members/{user_id}/roles", orgs.HandleListMemberRoles(orgSvc))
		r.Delete("/{org_id}/members/{user_id}", orgs.HandleRemoveMember(orgSvc))
		r.Post("/{org_id}/transfer", orgs.HandleTransferOwnership(orgSvc))

		r.Get("/{org_id}/audit", orgs.HandleListOrgAudit(orgSvc, reader))

		r.Post("/{org_id}/invites", invites.HandleCreateInvite(inviteSvc))
		r.Get("/{org_id}/invites", invites.HandleListInvites(inviteSvc))
		r.Delete("/{org_id}/invites/{invite_id}", invites.HandleCancelInvite(inviteSvc))
		r.Post("/{org_id}/invites/{invite_id}/resend", invites.HandleResendInvite(inviteSvc))

		r.Post("/{org_id}/api-keys", apikeys.HandleCreateKey(keySvc, orgSvc))
		r.Get("/{org_id}/api-keys", apikeys.HandleListKeys(keySvc, orgSvc))
		r.Delete("/{org_id}/api-keys/{key_id}", apikeys.HandleRevokeKey(keySvc, orgSvc))
	})

	// Invitation acceptance (session-authenticated)
	r.Route("/api/v1/invitations", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware())
		r.Use(auth.RequireAuth)

		r.Post("/accept", invites.HandleAcceptInvite(inviteSvc))
	})

	// Machine-to-machine routes (API-key-authenticated)
	r.Route("/api/v1/service", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(apikeys.RequireAPIKey(keySvc, orgSvc))
		r.Use(APIRateLimitMiddleware(cfg.RateLimitRPM))

		r.Get("/org", apikeys.HandleServiceOrg(orgSvc))
		r.Get("/members", apikeys.HandleServiceMembers(orgSvc))
	})

	return r
}

// handleHealthz is a liveness check; 200 whenever the process is up.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz is a readiness check including database connectivity.
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
