package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/audit"
	"github.com/inventra/inventra/internal/currentuser"
	"github.com/inventra/inventra/internal/inventory"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductHandler serves tenant-scoped product CRUD over the audited save
// pipeline.
type ProductHandler struct {
	repo *inventory.Repository
	sink audit.Sink
}

// NewProductHandler creates a product handler.
func NewProductHandler(repo *inventory.Repository, sink audit.Sink) *ProductHandler {
	return &ProductHandler{repo: repo, sink: sink}
}

func (h *ProductHandler) session(c echo.Context) *audit.Session {
	cu := currentuser.FromEcho(c)
	return audit.NewSession(cu.UserID(), cu.TenantID(), h.sink)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Name     string  `json:"name"`
		SKU      string  `json:"sku"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse product request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || req.SKU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and sku are required"})
	}

	p := model.Product{
		TenantID: currentuser.FromEcho(c).TenantID(),
		Name:     req.Name,
		SKU:      req.SKU,
		Price:    req.Price,
		Quantity: req.Quantity,
	}

	if err := h.repo.Create(c.Request().Context(), h.session(c), &p); err != nil {
		log.Error("Failed to create product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
	}

	log.Info("Product created",
		zap.Uint("product_id", p.ID),
		zap.String("tenant_id", p.TenantID))
	return c.JSON(http.StatusCreated, p)
}

// List handles GET /api/products
func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.repo.List(c.Request().Context(), currentuser.FromEcho(c).TenantID())
	if err != nil {
		logger.FromEcho(c).Error("Failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list products"})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

// Get handles GET /api/products/:id
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	p, err := h.repo.GetByID(c.Request().Context(), currentuser.FromEcho(c).TenantID(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		logger.FromEcho(c).Error("Failed to get product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get product"})
	}
	return c.JSON(http.StatusOK, p)
}

// Update handles PATCH /api/products/:id
func (h *ProductHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	var req struct {
		Name     *string  `json:"name"`
		Price    *float64 `json:"price"`
		Quantity *int     `json:"quantity"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse product update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	p, err := h.repo.Update(c.Request().Context(), h.session(c), currentuser.FromEcho(c).TenantID(), id, func(p *model.Product) {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Price != nil {
			p.Price = *req.Price
		}
		if req.Quantity != nil {
			p.Quantity = *req.Quantity
		}
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		log.Error("Failed to update product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update product"})
	}

	log.Info("Product updated", zap.Uint("product_id", p.ID))
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /api/products/:id. Products support soft deletion,
// so the row is flagged, never removed.
func (h *ProductHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	if err := h.repo.Delete(c.Request().Context(), h.session(c), currentuser.FromEcho(c).TenantID(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		log.Error("Failed to delete product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete product"})
	}

	log.Info("Product deleted", zap.Uint("product_id", id))
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
