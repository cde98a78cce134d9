package tenant

import (
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/inventra/inventra/internal/model"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Strategy extracts a tenant identifier from an inbound request. An empty
// result means the strategy has nothing to contribute and the next one in
// the chain is consulted.
type Strategy interface {
	Identifier(c echo.Context) string
}

// HeaderStrategy reads the tenant identifier from a request header.
type HeaderStrategy struct {
	Key string
}

func (s HeaderStrategy) Identifier(c echo.Context) string {
	return c.Request().Header.Get(s.Key)
}

// QueryStrategy reads the tenant identifier from a query-string parameter.
type QueryStrategy struct {
	Key string
}

func (s QueryStrategy) Identifier(c echo.Context) string {
	return c.QueryParam(s.Key)
}

// RouteStrategy reads the tenant identifier from a route path parameter.
type RouteStrategy struct {
	Key string
}

func (s RouteStrategy) Identifier(c echo.Context) string {
	return c.Param(s.Key)
}

// APIKeyStrategy resolves a tenant from an API key header. The key is
// either a raw UUID or a base64 encoding of one; either way it is looked
// up against the tenant store. Undecodable or unknown keys yield nothing.
type APIKeyStrategy struct {
	Header string
	Store  Store
}

func (s APIKeyStrategy) Identifier(c echo.Context) string {
	apiKey := c.Request().Header.Get(s.Header)
	if apiKey == "" {
		return ""
	}

	if _, err := uuid.Parse(apiKey); err != nil {
		decoded, err := base64.StdEncoding.DecodeString(apiKey)
		if err != nil {
			return ""
		}
		if _, err := uuid.Parse(string(decoded)); err != nil {
			return ""
		}
		apiKey = string(decoded)
	}

	tenant, err := s.Store.GetByAPIKey(c.Request().Context(), apiKey)
	if err != nil {
		return ""
	}
	return tenant.ID
}

// StaticStrategy yields a fixed identifier. It terminates the chain as the
// fallback when every other strategy comes up empty.
type StaticStrategy struct {
	TenantID string
}

func (s StaticStrategy) Identifier(c echo.Context) string {
	return s.TenantID
}

// Resolver runs an ordered chain of resolution strategies against a
// request. The first strategy producing a non-empty identifier wins.
type Resolver struct {
	store      Store
	strategies []Strategy
	defaultID  string
}

// NewResolver builds the standard resolution chain: header, query
// parameter, route segment (all under tenantKey), API key header, then the
// static default.
func NewResolver(store Store, tenantKey, apiKeyHeader, defaultID string) *Resolver {
	return &Resolver{
		store:     store,
		defaultID: defaultID,
		strategies: []Strategy{
			HeaderStrategy{Key: tenantKey},
			QueryStrategy{Key: tenantKey},
			RouteStrategy{Key: tenantKey},
			APIKeyStrategy{Header: apiKeyHeader, Store: store},
			StaticStrategy{TenantID: defaultID},
		},
	}
}

// Resolve determines the tenant for the request and loads its record. A
// non-default identifier that has no record is a resolution failure, never
// a silent fallback to the default tenant.
func (r *Resolver) Resolve(c echo.Context) (*model.Tenant, error) {
	var id string
	for _, strategy := range r.strategies {
		if id = strategy.Identifier(c); id != "" {
			break
		}
	}

	tenant, err := r.store.GetByID(c.Request().Context(), id)
	if err != nil {
		zap.L().Warn("tenant resolution failed",
			zap.String("tenant_id", id),
			zap.Error(err))
		return nil, err
	}

	zap.L().Debug("tenant resolved",
		zap.String("tenant_id", tenant.ID),
		zap.Bool("default", tenant.ID == r.defaultID))
	return tenant, nil
}

// DefaultID returns the static fallback tenant identifier.
func (r *Resolver) DefaultID() string {
	return r.defaultID
}
