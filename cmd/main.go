package main

import (
	"context"

	"github.com/inventra/inventra/internal/audit"
	"github.com/inventra/inventra/internal/handler"
	"github.com/inventra/inventra/internal/inventory"
	"github.com/inventra/inventra/internal/middleware"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/internal/tenant"
	"github.com/inventra/inventra/internal/token"
	"github.com/inventra/inventra/internal/user"
	"github.com/inventra/inventra/pkg/config"
	"github.com/inventra/inventra/pkg/database"
	"github.com/inventra/inventra/pkg/jwtutil"
	"github.com/inventra/inventra/pkg/logger"
	"github.com/inventra/inventra/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "inventra",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting identity service...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(db,
		&model.Tenant{}, &model.Role{}, &model.User{}, &model.Product{},
		&audit.TrailRecord{},
	); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:        cfg.JWT.SigningKey,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
		ExpirationMinutes: cfg.JWT.ExpirationMinutes,
	})

	// Wire the identity control plane
	tenantStore := tenant.NewGormStore(db)
	seedRootTenant(tenantStore, &cfg.Tenancy, log)

	resolver := tenant.NewResolver(tenantStore, cfg.Tenancy.TenantKey, cfg.Tenancy.APIKeyHeader, cfg.Tenancy.RootTenantID)
	tenantService := tenant.NewService(tenantStore)

	userStore := user.NewGormStore(db)
	issuer := token.NewIssuer(userStore, jwtUtil, cfg.JWT.RefreshExpiryDays)

	auditSink := audit.NewGormSink(db)
	productRepo := inventory.NewRepository(db)

	tokenHandler := handler.NewTokenHandler(issuer)
	userHandler := handler.NewUserHandler(userStore)
	tenantHandler := handler.NewTenantHandler(tenantService, auditSink)
	productHandler := handler.NewProductHandler(productRepo, auditSink)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - tenant resolution runs before credentials exist
	auth := e.Group("/auth")
	auth.Use(middleware.Tenant(resolver, cfg.Tenancy.TenantKey))
	auth.POST("/token", tokenHandler.Login)
	auth.POST("/refresh", tokenHandler.Refresh)
	auth.POST("/register", userHandler.Register)

	// API routes - all require authentication and a consistent tenant
	api := e.Group("/api")
	api.Use(middleware.Auth(jwtUtil))
	api.Use(middleware.Tenant(resolver, cfg.Tenancy.TenantKey))

	api.GET("/users/profile", userHandler.Profile)

	tenants := api.Group("/tenants")
	tenants.POST("", tenantHandler.Create)
	tenants.GET("", tenantHandler.List)
	tenants.GET("/:id", tenantHandler.Get)
	tenants.PATCH("/:id", tenantHandler.Update)
	tenants.POST("/:id/activate", tenantHandler.Activate)
	tenants.POST("/:id/deactivate", tenantHandler.Deactivate)

	products := api.Group("/products")
	products.POST("", productHandler.Create)
	products.GET("", productHandler.List)
	products.GET("/:id", productHandler.Get)
	products.PATCH("/:id", productHandler.Update)
	products.DELETE("/:id", productHandler.Delete)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

// seedRootTenant makes sure the static fallback tenant exists before the
// resolver can hand it out.
func seedRootTenant(store tenant.Store, cfg *config.TenancyConfig, log *zap.Logger) {
	ctx := context.Background()
	if _, err := store.GetByID(ctx, cfg.RootTenantID); err == nil {
		return
	}

	root := model.Tenant{
		ID:         cfg.RootTenantID,
		Name:       model.RootTenantName,
		AdminEmail: model.RootTenantEmail,
		IsActive:   true,
		APIKey:     uuid.New().String(),
	}
	if err := store.Add(ctx, &root); err != nil {
		log.Warn("Failed to seed root tenant", zap.Error(err))
		return
	}
	prometheus.ActiveTenantsGauge.Inc()
	log.Info("Root tenant seeded", zap.String("tenant_id", root.ID))
}
