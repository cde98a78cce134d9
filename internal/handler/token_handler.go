package handler

import (
	"errors"
	"net/http"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/middleware"
	"github.com/inventra/inventra/internal/token"
	"github.com/inventra/inventra/pkg/logger"
	"github.com/inventra/inventra/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenHandler serves token issuance and refresh.
type TokenHandler struct {
	issuer *token.Issuer
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(issuer *token.Issuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

// Login handles POST /auth/token
func (h *TokenHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req token.Request
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse token request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID := resolvedTenantID(c)
	resp, err := h.issuer.Issue(c.Request().Context(), req, tenantID)
	if err != nil {
		return h.translate(c, err, req.UsernameOrEmail)
	}

	prometheus.IncreaseActiveTokens()
	log.Info("Token issued",
		zap.String("user", req.UsernameOrEmail),
		zap.String("tenant_id", tenantID))
	return c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh
func (h *TokenHandler) Refresh(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RefreshCounter.Inc()

	var req token.RefreshRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse refresh request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID := resolvedTenantID(c)
	resp, err := h.issuer.Refresh(c.Request().Context(), req, tenantID)
	if err != nil {
		return h.translate(c, err, "")
	}

	log.Info("Token refreshed", zap.Uint("user_id", resp.UserID))
	return c.JSON(http.StatusOK, resp)
}

// translate maps issuer failures onto HTTP responses. The issuer itself
// never renders HTTP semantics.
func (h *TokenHandler) translate(c echo.Context, err error, subject string) error {
	log := logger.FromEcho(c)

	switch {
	case errors.Is(err, apperr.ErrInvalidCredentials):
		log.Warn("Invalid credentials", zap.String("user", subject))
		prometheus.RecordAuthError("invalid_credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, apperr.ErrInactiveAccount):
		log.Warn("Inactive account", zap.String("user", subject))
		prometheus.RecordAuthError("inactive_account")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is not active"})
	case errors.Is(err, apperr.ErrMalformedToken):
		prometheus.RecordAuthError("malformed_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "malformed or unsigned token"})
	case errors.Is(err, apperr.ErrInvalidRefreshToken):
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	case errors.Is(err, apperr.ErrNotFound):
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	default:
		log.Error("Token operation failed", zap.Error(err))
		prometheus.RecordAuthError("internal_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
}

// resolvedTenantID returns the tenant the request was resolved to.
func resolvedTenantID(c echo.Context) string {
	if t, ok := middleware.GetTenant(c); ok {
		return t.ID
	}
	return ""
}
