package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/orgbase/orgbase/internal/apperrors"
	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/tenant"
)

// ProvisionOrgFunc creates the user's personal default organization after
// signup. Wired to the organization service at router construction to keep
// this package free of a dependency on it.
type ProvisionOrgFunc func(ctx context.Context, userID uuid.UUID, email string) error

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// HandleSignup handles POST /api/v1/auth/signup: creates the user, their
// personal default organization, and a session.
func HandleSignup(pool *pgxpool.Pool, auditor *audit.Writer, provisionOrg ProvisionOrgFunc, jwtSecret string, sessionDays int, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid email address")
			return
		}
		if len(req.Password) < 8 {
			apperrors.WriteBadRequest(w, r, "Password must be at least 8 characters")
			return
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		var userID uuid.UUID
		err = pool.QueryRow(ctx, `
			INSERT INTO users (email, password_hash)
			VALUES ($1, $2)
			RETURNING id
		`, email, passwordHash).Scan(&userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				apperrors.WriteConflict(w, r, "Email address already registered")
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to insert user")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		// Every user gets a personal default organization. Signup still
		// succeeds if provisioning fails; the tenant middleware simply finds
		// no default until one is created.
		if provisionOrg != nil {
			if err := provisionOrg(ctx, userID, email); err != nil {
				log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to provision personal organization")
			}
		}

		if err := auditor.LogUserSignup(ctx, userID, email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		token, err := CreateToken(userID, jwtSecret, sessionDays)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create token")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}
		SetSessionCookie(w, token, sessionDays, secure)
		issueCSRFCookie(w, secure)

		log.Info().
			Str("user_id", userID.String()).
			Str("email", email).
			Msg("User signed up")

		apperrors.WriteSuccess(w, r, http.StatusCreated, SignupResponse{
			UserID: userID,
			Email:  email,
		})
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// HandleLogin handles POST /api/v1/auth/login. Unknown email and wrong
// password return the same generic error.
func HandleLogin(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		var userID uuid.UUID
		var passwordHash string
		err := pool.QueryRow(ctx, `SELECT id, password_hash FROM users WHERE email = $1`, email).
			Scan(&userID, &passwordHash)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Debug().Str("email", email).Msg("Login failed: user not found")
				if err := auditor.LogLoginFailed(ctx, email, r.RemoteAddr); err != nil {
					log.Error().Err(err).Msg("Failed to log audit event")
				}
				apperrors.WriteUnauthorized(w, r, "Invalid credentials")
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to query user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if err := VerifyPassword(passwordHash, req.Password); err != nil {
			log.Debug().Str("email", email).Msg("Login failed: wrong password")
			if err := auditor.LogLoginFailed(ctx, email, r.RemoteAddr); err != nil {
				log.Error().Err(err).Msg("Failed to log audit event")
			}
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		token, err := CreateToken(userID, jwtSecret, sessionDays)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create token")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}
		SetSessionCookie(w, token, sessionDays, secure)
		issueCSRFCookie(w, secure)

		log.Info().
			Str("user_id", userID.String()).
			Str("email", email).
			Msg("User logged in")

		apperrors.WriteSuccess(w, r, http.StatusOK, LoginResponse{
			UserID: userID,
			Email:  email,
		})
	}
}

// HandleLogout handles POST /api/v1/auth/logout: clears the session cookie
// and the remembered organization.
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ClearSessionCookie(w)
		tenant.FromContext(r.Context()).Forget()

		if userID := GetUserID(r.Context()); userID != uuid.Nil {
			log.Info().Str("user_id", userID.String()).Msg("User logged out")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"logged_out": true,
		})
	}
}

// HandleMe handles GET /api/v1/auth/me: the authenticated user and their
// current organization.
func HandleMe(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := GetUserID(ctx)

		var email string
		err := pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				apperrors.WriteUnauthorized(w, r, "Authentication required")
				return
			}
			log.Error().Err(err).Msg("Failed to load user")
			apperrors.WriteInternalError(w, r, "Failed to load user")
			return
		}

		body := map[string]any{
			"user_id": userID,
			"email":   email,
		}
		if org := tenant.FromContext(ctx).Get(); org != nil {
			body["current_org"] = org
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, body)
	}
}

func issueCSRFCookie(w http.ResponseWriter, secure bool) {
	token, err := GenerateCSRFToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate CSRF token")
		return
	}
	SetCSRFCookie(w, token, secure)
}
