package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/currentuser"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/internal/tenant"
	"github.com/inventra/inventra/pkg/jwtutil"
	"github.com/inventra/inventra/pkg/logger"
	"github.com/inventra/inventra/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantKey is the echo context key holding the resolved tenant record.
const TenantKey = "tenant"

// Tenant resolves the request's tenant through the strategy chain and
// enforces consistency between the transport-level hint and the
// authenticated claims. On a tenant switch the identity claims are rebuilt
// wholesale with the freshly resolved tenant; the old claim set is never
// mutated in place.
func Tenant(resolver *tenant.Resolver, tenantKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			headerTenant := c.Request().Header.Get(tenantKey)
			hasAuth := c.Request().Header.Get("Authorization") != ""
			claims, _ := c.Get(ClaimsKey).(*jwtutil.UserClaims)

			// When both an authorization credential and an explicit tenant
			// hint are present, the claimed tenant must match the hint.
			if hasAuth && headerTenant != "" && claims != nil &&
				claims.Tenant != "" && claims.Tenant != headerTenant {
				log.Warn("tenant mismatch",
					zap.String("token_tenant", claims.Tenant),
					zap.String("header_tenant", headerTenant))
				prometheus.RecordTenantResolution("mismatch")
				return c.JSON(http.StatusForbidden, apperr.NewResponse(
					"Tenant mismatch",
					"TENANT_MISMATCH",
					fmt.Sprintf("The tenant in your token '%s' does not match the tenant in the request header '%s'", claims.Tenant, headerTenant),
					map[string]interface{}{
						"tokenTenant":  claims.Tenant,
						"headerTenant": headerTenant,
					},
				))
			}

			resolved, err := resolver.Resolve(c)
			if err != nil {
				if errors.Is(err, apperr.ErrTenantNotFound) {
					id := headerTenant
					if id == "" {
						id = c.QueryParam(tenantKey)
					}
					log.Warn("tenant not found", zap.String("tenant_id", id))
					prometheus.RecordTenantResolution("not_found")
					return c.JSON(http.StatusNotFound, apperr.NewResponse(
						fmt.Sprintf("Tenant '%s' not found", id),
						"TENANT_NOT_FOUND",
						fmt.Sprintf("The tenant '%s' specified in the request does not exist", id),
						map[string]interface{}{"tenantId": id},
					))
				}
				log.Error("tenant resolution failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
			}

			// The freshly resolved tenant becomes the active context. When
			// it differs from the claimed one, rebuild the claim set with
			// the new tenant and repopulate the current-user cache.
			cu := currentuser.FromEcho(c)
			if claims != nil && claims.Tenant != resolved.ID {
				rewritten := *claims
				rewritten.Tenant = resolved.ID
				// Slice-typed claims get their own backing arrays so
				// mutations cannot cross between the two claim sets.
				rewritten.Roles = append([]string(nil), claims.Roles...)
				rewritten.Audience = append(jwt.ClaimStrings(nil), claims.Audience...)
				c.Set(ClaimsKey, &rewritten)
				cu.SetPrincipal(&rewritten)
				log.Debug("tenant claim rewritten",
					zap.String("old_tenant", claims.Tenant),
					zap.String("new_tenant", resolved.ID))
			} else {
				cu.SetTenant(resolved.ID)
			}

			c.Set(TenantKey, resolved)
			prometheus.RecordTenantResolution("resolved")

			return next(c)
		}
	}
}

// GetTenant returns the resolved tenant record attached to the request.
func GetTenant(c echo.Context) (*model.Tenant, bool) {
	t, ok := c.Get(TenantKey).(*model.Tenant)
	return t, ok
}
