package tenant

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
)

const (
	// SessionName is the cookie name of the tenant session.
	SessionName = "ob_tenant"

	orgIDSessionKey = "current_organization_id"
)

// SessionStore wraps a cookie store for the tenant session.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates the tenant session store. maxAgeDays bounds the
// cookie lifetime; secure controls the Secure flag.
func NewSessionStore(secret string, maxAgeDays int, secure bool) *SessionStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Open returns the request's tenant session. Decode errors yield a fresh
// session rather than failing the request.
func (s *SessionStore) Open(w http.ResponseWriter, r *http.Request) *Session {
	sess, err := s.store.Get(r, SessionName)
	if err != nil {
		log.Debug().Err(err).Msg("Tenant session decode failed, starting fresh")
	}
	return &Session{sess: sess, w: w, r: r}
}

// Session is a per-request handle on the tenant cookie session. All writes
// are best-effort: save failures are logged and swallowed so the in-memory
// tenant context keeps working for the current request.
type Session struct {
	sess *sessions.Session
	w    http.ResponseWriter
	r    *http.Request
}

// RememberOrg mirrors the organization ID into the session.
func (s *Session) RememberOrg(id uuid.UUID) {
	if s == nil || s.sess == nil {
		return
	}
	s.sess.Values[orgIDSessionKey] = id.String()
	if err := s.sess.Save(s.r, s.w); err != nil {
		log.Debug().Err(err).Msg("Failed to save tenant session")
	}
}

// ForgetOrg removes the remembered organization ID from the session.
func (s *Session) ForgetOrg() {
	if s == nil || s.sess == nil {
		return
	}
	delete(s.sess.Values, orgIDSessionKey)
	if err := s.sess.Save(s.r, s.w); err != nil {
		log.Debug().Err(err).Msg("Failed to save tenant session")
	}
}

// RememberedOrg returns the organization ID stored in the session, if any.
func (s *Session) RememberedOrg() (uuid.UUID, bool) {
	if s == nil || s.sess == nil {
		return uuid.Nil, false
	}
	raw, ok := s.sess.Values[orgIDSessionKey].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
