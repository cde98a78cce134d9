package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/currentuser"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/internal/tenant"
	"github.com/inventra/inventra/pkg/jwtutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newTenantResolver(t *testing.T) *tenant.Resolver {
	t.Helper()
	store := tenant.NewMemoryStore()
	require.NoError(t, store.Add(context.Background(), &model.Tenant{
		ID:       model.RootTenantID,
		Name:     model.RootTenantName,
		IsActive: true,
	}))
	require.NoError(t, store.Add(context.Background(), &model.Tenant{
		ID:       "acme",
		Name:     "Acme Corp",
		IsActive: true,
	}))
	require.NoError(t, store.Add(context.Background(), &model.Tenant{
		ID:       "beta",
		Name:     "Beta Inc",
		IsActive: true,
	}))
	return tenant.NewResolver(store, "tenant", "Api-Key", model.RootTenantID)
}

func testClaims(userID, email, tenantID string, roles ...string) *jwtutil.UserClaims {
	return &jwtutil.UserClaims{
		Email:  email,
		Tenant: tenantID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
		},
	}
}

func runTenantMiddleware(t *testing.T, req *http.Request, claims *jwtutil.UserClaims) (echo.Context, *httptest.ResponseRecorder, bool) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if claims != nil {
		c.Set(ClaimsKey, claims)
		currentuser.FromEcho(c).SetPrincipal(claims)
	}

	called := false
	handler := Tenant(newTenantResolver(t), "tenant")(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return c, rec, called
}

func TestTenantMismatchRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	req.Header.Set("tenant", "beta")

	_, rec, called := runTenantMiddleware(t, req, testClaims("7", "alice@acme.test", "acme"))

	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp apperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Succeeded)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "TENANT_MISMATCH", resp.Errors[0].Code)
	require.Equal(t, "acme", resp.Errors[0].Details["tokenTenant"])
	require.Equal(t, "beta", resp.Errors[0].Details["headerTenant"])
}

func TestTenantNotFoundRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("tenant", "ghost")

	_, rec, called := runTenantMiddleware(t, req, nil)

	require.False(t, called)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Succeeded)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "TENANT_NOT_FOUND", resp.Errors[0].Code)
	require.Equal(t, "ghost", resp.Errors[0].Details["tenantId"])
}

func TestTenantResolvedAndAttached(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("tenant", "acme")

	c, rec, called := runTenantMiddleware(t, req, nil)

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)

	resolved, ok := GetTenant(c)
	require.True(t, ok)
	require.Equal(t, "acme", resolved.ID)
	require.Equal(t, "acme", currentuser.FromEcho(c).TenantID())
}

func TestTenantFallsBackToRoot(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	c, _, called := runTenantMiddleware(t, req, nil)

	require.True(t, called)
	resolved, ok := GetTenant(c)
	require.True(t, ok)
	require.Equal(t, model.RootTenantID, resolved.ID)
}

func TestTenantSwitchRewritesClaims(t *testing.T) {
	// Claims carry no tenant yet, so the header hint may switch the
	// principal onto the resolved tenant.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	req.Header.Set("tenant", "beta")

	original := testClaims("7", "alice@acme.test", "", "admin")
	c, _, called := runTenantMiddleware(t, req, original)

	require.True(t, called)

	rewritten, ok := c.Get(ClaimsKey).(*jwtutil.UserClaims)
	require.True(t, ok)
	require.Equal(t, "beta", rewritten.Tenant)
	require.NotSame(t, original, rewritten)

	// The old claim set is never mutated in place.
	require.Equal(t, "", original.Tenant)

	// The current-user accessor sees the rewritten principal, roles
	// included, not stale cached fields.
	cu := currentuser.FromEcho(c)
	require.Equal(t, "beta", cu.TenantID())
	require.Equal(t, uint(7), cu.UserID())
	require.True(t, cu.IsInRole("admin"))
}

func TestTenantSwitchCopiesClaimSlices(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	req.Header.Set("tenant", "beta")

	original := testClaims("7", "alice@acme.test", "", "admin")
	original.Audience = jwt.ClaimStrings{"inventra"}
	c, _, called := runTenantMiddleware(t, req, original)

	require.True(t, called)
	rewritten, ok := c.Get(ClaimsKey).(*jwtutil.UserClaims)
	require.True(t, ok)

	// The rewritten claim set owns its slices; mutating them must not
	// reach back into the original.
	rewritten.Roles[0] = "root-admin"
	rewritten.Audience[0] = "elsewhere"
	require.Equal(t, "admin", original.Roles[0])
	require.Equal(t, "inventra", string(original.Audience[0]))
}

func TestTenantMatchingHintKeepsClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	req.Header.Set("tenant", "acme")

	original := testClaims("7", "alice@acme.test", "acme")
	c, _, called := runTenantMiddleware(t, req, original)

	require.True(t, called)

	claims, ok := c.Get(ClaimsKey).(*jwtutil.UserClaims)
	require.True(t, ok)
	require.Same(t, original, claims)
	require.Equal(t, "acme", currentuser.FromEcho(c).TenantID())
}
