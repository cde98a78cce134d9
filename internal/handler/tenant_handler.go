package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/audit"
	"github.com/inventra/inventra/internal/currentuser"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/internal/tenant"
	"github.com/inventra/inventra/pkg/logger"
	"github.com/inventra/inventra/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantHandler serves tenant management operations.
type TenantHandler struct {
	service *tenant.Service
	sink    audit.Sink
}

// NewTenantHandler creates a tenant handler.
func NewTenantHandler(service *tenant.Service, sink audit.Sink) *TenantHandler {
	return &TenantHandler{service: service, sink: sink}
}

// session builds an audit session acting as the request's user and tenant.
func (h *TenantHandler) session(c echo.Context) *audit.Session {
	cu := currentuser.FromEcho(c)
	return audit.NewSession(cu.UserID(), cu.TenantID(), h.sink)
}

// Create handles POST /api/tenants
func (h *TenantHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.TenantOperationCounter.With(map[string]string{"operation": "create"}).Inc()

	var req struct {
		ID               string     `json:"id"`
		Name             string     `json:"name"`
		ConnectionString string     `json:"connection_string"`
		AdminEmail       string     `json:"admin_email"`
		Issuer           string     `json:"issuer"`
		ValidUpto        *time.Time `json:"valid_upto"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.ID == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id and name are required"})
	}

	t := model.Tenant{
		ID:               req.ID,
		Name:             req.Name,
		ConnectionString: req.ConnectionString,
		AdminEmail:       req.AdminEmail,
		Issuer:           req.Issuer,
		ValidUpto:        req.ValidUpto,
	}

	if err := h.service.Create(c.Request().Context(), h.session(c), &t); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			log.Warn("Duplicate tenant", zap.String("tenant_id", req.ID))
			return c.JSON(http.StatusConflict, echo.Map{"error": "tenant already exists"})
		}
		log.Error("Failed to create tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create tenant"})
	}

	prometheus.ActiveTenantsGauge.Inc()
	log.Info("Tenant created", zap.String("tenant_id", t.ID))
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /api/tenants
func (h *TenantHandler) List(c echo.Context) error {
	tenants, err := h.service.All(c.Request().Context())
	if err != nil {
		logger.FromEcho(c).Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tenants"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tenants": tenants})
}

// Get handles GET /api/tenants/:id
func (h *TenantHandler) Get(c echo.Context) error {
	t, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperr.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		logger.FromEcho(c).Error("Failed to get tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get tenant"})
	}
	return c.JSON(http.StatusOK, t)
}

// Update handles PATCH /api/tenants/:id
func (h *TenantHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.TenantOperationCounter.With(map[string]string{"operation": "update"}).Inc()

	var req struct {
		Name             *string    `json:"name"`
		ConnectionString *string    `json:"connection_string"`
		AdminEmail       *string    `json:"admin_email"`
		Issuer           *string    `json:"issuer"`
		ValidUpto        *time.Time `json:"valid_upto"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	t, err := h.service.Update(c.Request().Context(), h.session(c), c.Param("id"), func(t *model.Tenant) {
		if req.Name != nil {
			t.Name = *req.Name
		}
		if req.ConnectionString != nil {
			t.ConnectionString = *req.ConnectionString
		}
		if req.AdminEmail != nil {
			t.AdminEmail = *req.AdminEmail
		}
		if req.Issuer != nil {
			t.Issuer = *req.Issuer
		}
		if req.ValidUpto != nil {
			t.ValidUpto = req.ValidUpto
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrTenantNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		case errors.Is(err, apperr.ErrDuplicate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "tenant name already exists"})
		default:
			log.Error("Failed to update tenant", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update tenant"})
		}
	}

	log.Info("Tenant updated", zap.String("tenant_id", t.ID))
	return c.JSON(http.StatusOK, t)
}

// Activate handles POST /api/tenants/:id/activate
func (h *TenantHandler) Activate(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.TenantOperationCounter.With(map[string]string{"operation": "activate"}).Inc()

	t, err := h.service.Activate(c.Request().Context(), h.session(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperr.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Failed to activate tenant", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	prometheus.ActiveTenantsGauge.Inc()
	log.Info("Tenant activated", zap.String("tenant_id", t.ID))
	return c.JSON(http.StatusOK, t)
}

// Deactivate handles POST /api/tenants/:id/deactivate
func (h *TenantHandler) Deactivate(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.TenantOperationCounter.With(map[string]string{"operation": "deactivate"}).Inc()

	t, err := h.service.Deactivate(c.Request().Context(), h.session(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperr.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Failed to deactivate tenant", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	prometheus.ActiveTenantsGauge.Dec()
	log.Info("Tenant deactivated", zap.String("tenant_id", t.ID))
	return c.JSON(http.StatusOK, t)
}
