package currentuser

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/inventra/inventra/pkg/jwtutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func claimsFor(userID, email, name, tenantID string, roles ...string) *jwtutil.UserClaims {
	return &jwtutil.UserClaims{
		Email:    email,
		UserName: name,
		Tenant:   tenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
		},
	}
}

func TestAnonymousDefaults(t *testing.T) {
	cu := New()
	require.Equal(t, uint(0), cu.UserID())
	require.Equal(t, "", cu.Email())
	require.Equal(t, "", cu.Name())
	require.Equal(t, "", cu.TenantID())
	require.False(t, cu.IsInRole("admin"))
}

func TestFieldsReadFromClaims(t *testing.T) {
	cu := New()
	cu.SetPrincipal(claimsFor("42", "alice@acme.test", "alice", "acme", "admin"))

	require.Equal(t, uint(42), cu.UserID())
	require.Equal(t, "alice@acme.test", cu.Email())
	require.Equal(t, "alice", cu.Name())
	require.Equal(t, "acme", cu.TenantID())
}

func TestFieldsCachedAfterFirstRead(t *testing.T) {
	claims := claimsFor("42", "alice@acme.test", "alice", "acme")
	cu := New()
	cu.SetPrincipal(claims)

	require.Equal(t, "alice@acme.test", cu.Email())
	require.Equal(t, "acme", cu.TenantID())

	// Mutating the claims after the first read must not leak through;
	// the cached values hold for the rest of the request.
	claims.Email = "eve@evil.test"
	claims.Tenant = "evil"

	require.Equal(t, "alice@acme.test", cu.Email())
	require.Equal(t, "acme", cu.TenantID())
}

func TestSetPrincipalInvalidatesCache(t *testing.T) {
	cu := New()
	cu.SetPrincipal(claimsFor("42", "alice@acme.test", "alice", "acme"))

	// Warm every cache slot.
	_ = cu.UserID()
	_ = cu.Email()
	_ = cu.Name()
	_ = cu.TenantID()

	cu.SetPrincipal(claimsFor("99", "bob@beta.test", "bob", "beta"))

	require.Equal(t, uint(99), cu.UserID())
	require.Equal(t, "bob@beta.test", cu.Email())
	require.Equal(t, "bob", cu.Name())
	require.Equal(t, "beta", cu.TenantID())
}

func TestSetTenantOverrides(t *testing.T) {
	cu := New()
	cu.SetPrincipal(claimsFor("42", "alice@acme.test", "alice", "acme"))

	cu.SetTenant("beta")
	require.Equal(t, "beta", cu.TenantID())

	// Other fields still come from the claims.
	require.Equal(t, uint(42), cu.UserID())
}

func TestIsInRoleNeverCached(t *testing.T) {
	claims := claimsFor("42", "alice@acme.test", "alice", "acme")
	cu := New()
	cu.SetPrincipal(claims)

	require.False(t, cu.IsInRole("admin"))

	// Role checks always hit the live claims.
	claims.Roles = append(claims.Roles, "admin")
	require.True(t, cu.IsInRole("admin"))
}

func TestFromEchoAttachesOnce(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	first := FromEcho(c)
	second := FromEcho(c)
	require.Same(t, first, second)
}
