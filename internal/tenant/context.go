// Package tenant tracks the caller's current organization for the duration
// of a request. The context is an explicit per-request value stored in the
// request's context.Context. There is no process-global slot, so nothing
// needs flushing between requests under any deployment model.
//
// For browser sessions the current organization ID is mirrored into a cookie
// session so it survives across requests; API-key requests carry no session
// and the context lives in memory only.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

// CurrentOrg is the view of an organization the tenant context holds.
type CurrentOrg struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// Context holds at most one current organization. Set and Forget are
// idempotent and never fail; session mirroring is silently skipped when no
// session is attached.
type Context struct {
	org  *CurrentOrg
	sess *Session
}

// NewContext creates a tenant context. sess may be nil (API/token requests).
func NewContext(sess *Session) *Context {
	return &Context{sess: sess}
}

// Set makes org the current organization and mirrors its ID into the
// session, if one is attached. A nil org clears the context.
func (c *Context) Set(org *CurrentOrg) {
	c.org = org
	if c.sess == nil {
		return
	}
	if org == nil {
		c.sess.ForgetOrg()
		return
	}
	c.sess.RememberOrg(org.ID)
}

// Get returns the current organization, or nil if none is set.
func (c *Context) Get() *CurrentOrg {
	return c.org
}

// ID returns the current organization's ID, or uuid.Nil if none is set.
func (c *Context) ID() uuid.UUID {
	if c.org == nil {
		return uuid.Nil
	}
	return c.org.ID
}

// Check reports whether a current organization is set.
func (c *Context) Check() bool {
	return c.org != nil
}

// Forget clears the current organization and its session mirror.
func (c *Context) Forget() {
	c.Set(nil)
}

type contextKey string

const tenantContextKey contextKey = "tenant_context"

// WithContext attaches the tenant context to ctx.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// FromContext returns the request's tenant context. Requests that never went
// through the tenant middleware get an empty, sessionless context so callers
// can use the result unconditionally.
func FromContext(ctx context.Context) *Context {
	tc, ok := ctx.Value(tenantContextKey).(*Context)
	if !ok {
		return NewContext(nil)
	}
	return tc
}
