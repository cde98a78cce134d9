package currentuser

import (
	"github.com/inventra/inventra/pkg/jwtutil"
	"github.com/labstack/echo/v4"
)

const contextKey = "current_user"

// Context is the per-request accessor for the authenticated identity.
// Field reads are cached on first access for the remainder of the request;
// SetPrincipal drops the cache so a principal rewrite (tenant switch) is
// never shadowed by stale reads. A request runs on one goroutine, so no
// locking is needed, and a Context must never be shared across requests.
type Context struct {
	claims   *jwtutil.UserClaims
	userID   *uint
	email    *string
	name     *string
	tenantID *string
}

// New creates an empty current-user context.
func New() *Context {
	return &Context{}
}

// SetPrincipal installs the authenticated claims and invalidates every
// cached field. Trusted middleware calls this near the start of the
// request and again whenever the principal is rewritten.
func (c *Context) SetPrincipal(claims *jwtutil.UserClaims) {
	c.claims = claims
	c.userID = nil
	c.email = nil
	c.name = nil
	c.tenantID = nil
}

// SetTenant overrides the tenant identifier for the remainder of the
// request.
func (c *Context) SetTenant(tenantID string) {
	c.tenantID = &tenantID
}

// UserID returns the authenticated user's ID, zero when anonymous.
func (c *Context) UserID() uint {
	if c.userID == nil {
		var id uint
		if c.claims != nil {
			id = c.claims.UserID()
		}
		c.userID = &id
	}
	return *c.userID
}

// Email returns the authenticated user's email.
func (c *Context) Email() string {
	if c.email == nil {
		var email string
		if c.claims != nil {
			email = c.claims.Email
		}
		c.email = &email
	}
	return *c.email
}

// Name returns the authenticated user's display name.
func (c *Context) Name() string {
	if c.name == nil {
		var name string
		if c.claims != nil {
			name = c.claims.UserName
		}
		c.name = &name
	}
	return *c.name
}

// TenantID returns the tenant the request is acting within.
func (c *Context) TenantID() string {
	if c.tenantID == nil {
		var tenant string
		if c.claims != nil {
			tenant = c.claims.Tenant
		}
		c.tenantID = &tenant
	}
	return *c.tenantID
}

// IsInRole reports whether the principal carries the given role claim.
// Role checks always consult the claims directly and are never cached.
func (c *Context) IsInRole(role string) bool {
	if c.claims == nil {
		return false
	}
	return c.claims.HasRole(role)
}

// FromEcho returns the request's current-user context, creating and
// attaching an empty one when missing.
func FromEcho(c echo.Context) *Context {
	if cu, ok := c.Get(contextKey).(*Context); ok {
		return cu
	}
	cu := New()
	c.Set(contextKey, cu)
	return cu
}
