package handler

import (
	"errors"
	"net/http"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/currentuser"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/internal/user"
	"github.com/inventra/inventra/pkg/logger"
	"github.com/inventra/inventra/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler serves user registration and profile access.
type UserHandler struct {
	users user.Store
}

// NewUserHandler creates a user handler.
func NewUserHandler(users user.Store) *UserHandler {
	return &UserHandler{users: users}
}

// Register handles POST /auth/register
func (h *UserHandler) Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		UserName string `json:"user_name"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" || req.Password == "" {
		log.Error("Invalid registration data",
			zap.String("email", req.Email),
			zap.Bool("password_provided", req.Password != ""))
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	// Check if user already exists
	if _, err := h.users.FindByEmail(c.Request().Context(), req.Email); err == nil {
		log.Error("User already exists", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	} else if !errors.Is(err, apperr.ErrNotFound) {
		log.Error("Failed to check existing user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	userName := req.UserName
	if userName == "" {
		userName = req.Email
	}

	newUser := model.User{
		Email:        req.Email,
		UserName:     userName,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
		TenantID:     resolvedTenantID(c),
	}

	if err := h.users.Create(c.Request().Context(), &newUser); err != nil {
		log.Error("Failed to create user", zap.Error(err))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("User registered",
		zap.String("email", newUser.Email),
		zap.String("tenant_id", newUser.TenantID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": map[string]interface{}{
			"id":        newUser.ID,
			"email":     newUser.Email,
			"user_name": newUser.UserName,
			"tenant_id": newUser.TenantID,
		},
	})
}

// Profile handles GET /api/users/profile
func (h *UserHandler) Profile(c echo.Context) error {
	log := logger.FromEcho(c)

	cu := currentuser.FromEcho(c)
	u, err := h.users.FindByID(c.Request().Context(), cu.UserID())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load profile", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":        u.ID,
		"email":     u.Email,
		"user_name": u.UserName,
		"tenant_id": cu.TenantID(),
		"roles":     u.RoleNames(),
		"is_active": u.IsActive,
	})
}
