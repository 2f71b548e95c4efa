package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContext_SetGetForget(t *testing.T) {
	tc := NewContext(nil)
	require.False(t, tc.Check())
	require.Equal(t, uuid.Nil, tc.ID())
	require.Nil(t, tc.Get())

	org := &CurrentOrg{ID: uuid.New(), Name: "Acme", Slug: "acme"}
	tc.Set(org)
	require.True(t, tc.Check())
	require.Equal(t, org.ID, tc.ID())
	require.Equal(t, org, tc.Get())

	// Set and Forget are idempotent.
	tc.Set(org)
	require.Equal(t, org.ID, tc.ID())

	tc.Forget()
	tc.Forget()
	require.False(t, tc.Check())
	require.Equal(t, uuid.Nil, tc.ID())
}

func TestFromContext_Unset(t *testing.T) {
	tc := FromContext(context.Background())
	require.NotNil(t, tc)
	require.False(t, tc.Check())

	// Usable without a session attached.
	tc.Set(&CurrentOrg{ID: uuid.New()})
	tc.Forget()
}

func TestSession_RememberRoundTrip(t *testing.T) {
	store := NewSessionStore("test-session-secret", 7, false)
	orgID := uuid.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := store.Open(rec, req)
	sess.RememberOrg(orgID)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	got, ok := store.Open(httptest.NewRecorder(), next).RememberedOrg()
	require.True(t, ok)
	require.Equal(t, orgID, got)
}

func TestSession_ForgetOrg(t *testing.T) {
	store := NewSessionStore("test-session-secret", 7, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := store.Open(rec, req)
	sess.RememberOrg(uuid.New())
	sess.ForgetOrg()

	_, ok := sess.RememberedOrg()
	require.False(t, ok)
}

type fakeDirectory struct {
	memberships map[uuid.UUID]*CurrentOrg // orgID -> org, membership assumed for the test user
	defaultOrg  *CurrentOrg
}

func (d *fakeDirectory) MemberOrg(_ context.Context, _, orgID uuid.UUID) (*CurrentOrg, error) {
	return d.memberships[orgID], nil
}

func (d *fakeDirectory) DefaultOrg(_ context.Context, _ uuid.UUID) (*CurrentOrg, error) {
	return d.defaultOrg, nil
}

func runMiddleware(t *testing.T, store *SessionStore, dir Directory, userID uuid.UUID, cookies []*http.Cookie) (*Context, *httptest.ResponseRecorder) {
	t.Helper()

	var captured *Context
	handler := Middleware(store, dir, func(context.Context) uuid.UUID { return userID })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = FromContext(r.Context())
		}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	handler.ServeHTTP(rec, req)

	require.NotNil(t, captured)
	return captured, rec
}

func TestMiddleware_Unauthenticated(t *testing.T) {
	store := NewSessionStore("test-session-secret", 7, false)
	tc, _ := runMiddleware(t, store, &fakeDirectory{}, uuid.Nil, nil)
	require.False(t, tc.Check())
}

func TestMiddleware_FallsBackToDefaultOrg(t *testing.T) {
	store := NewSessionStore("test-session-secret", 7, false)
	def := &CurrentOrg{ID: uuid.New(), Name: "Personal", Slug: "personal"}
	dir := &fakeDirectory{defaultOrg: def}

	tc, _ := runMiddleware(t, store, dir, uuid.New(), nil)
	require.True(t, tc.Check())
	require.Equal(t, def.ID, tc.ID())
}

func TestMiddleware_PrefersRememberedOrg(t *testing.T) {
	store := NewSessionStore("test-session-secret", 7, false)
	remembered := &CurrentOrg{ID: uuid.New(), Name: "Acme", Slug: "acme"}
	def := &CurrentOrg{ID: uuid.New(), Name: "Personal", Slug: "personal"}
	dir := &fakeDirectory{
		memberships: map[uuid.UUID]*CurrentOrg{remembered.ID: remembered},
		defaultOrg:  def,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	store.Open(rec, req).RememberOrg(remembered.ID)

	tc, _ := runMiddleware(t, store, dir, uuid.New(), rec.Result().Cookies())
	require.Equal(t, remembered.ID, tc.ID())
}

func TestMiddleware_DiscardsStaleSessionOrg(t *testing.T) {
	store := NewSessionStore("test-session-secret", 7, false)
	def := &CurrentOrg{ID: uuid.New(), Name: "Personal", Slug: "personal"}
	dir := &fakeDirectory{defaultOrg: def}

	// Remember an organization the user no longer belongs to.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	store.Open(rec, req).RememberOrg(uuid.New())

	tc, _ := runMiddleware(t, store, dir, uuid.New(), rec.Result().Cookies())
	require.Equal(t, def.ID, tc.ID())
}

func TestTeamResolver(t *testing.T) {
	var resolver TeamResolver

	require.Equal(t, uuid.Nil, resolver.PermissionsTeamID(context.Background()))

	tc := NewContext(nil)
	org := &CurrentOrg{ID: uuid.New()}
	tc.Set(org)
	ctx := WithContext(context.Background(), tc)
	require.Equal(t, org.ID, resolver.PermissionsTeamID(ctx))

	// SetPermissionsTeamID must not affect the context.
	resolver.SetPermissionsTeamID(uuid.New())
	require.Equal(t, org.ID, resolver.PermissionsTeamID(ctx))
}
