package middleware

import (
	"net/http"
	"strings"

	"github.com/inventra/inventra/internal/currentuser"
	"github.com/inventra/inventra/pkg/jwtutil"
	"github.com/inventra/inventra/pkg/logger"
	"github.com/inventra/inventra/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ClaimsKey is the echo context key holding the validated JWT claims.
const ClaimsKey = "user"

// Auth validates the JWT token from the Authorization header and seeds the
// request's current-user context from its claims.
func Auth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			// Get the Authorization header
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Error("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			// Check if it's a Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Error("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			// Validate the token
			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Error("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			// Store the claims and seed the current-user context
			c.Set(ClaimsKey, claims)
			currentuser.FromEcho(c).SetPrincipal(claims)

			log.Debug("Request authenticated",
				zap.Uint("user_id", claims.UserID()),
				zap.String("email", claims.Email),
				zap.String("tenant", claims.Tenant))

			return next(c)
		}
	}
}
