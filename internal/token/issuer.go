package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/internal/user"
	"github.com/inventra/inventra/pkg/jwtutil"
	"golang.org/x/crypto/bcrypt"
)

// Request carries the credentials presented at login.
type Request struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

// RefreshRequest carries an expired access token and the refresh token
// that should rotate it.
type RefreshRequest struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Response is the token pair handed out at login and on refresh.
type Response struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	UserID       uint     `json:"user_id"`
	UserName     string   `json:"user_name"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	TenantID     string   `json:"tenant_id"`
	IsActive     bool     `json:"is_active"`
}

// Issuer generates signed access tokens and opaque refresh tokens, and
// rotates the pair on every successful refresh.
type Issuer struct {
	users             user.Store
	jwt               *jwtutil.JWTUtil
	refreshExpiryDays int
	now               func() time.Time
}

// NewIssuer creates a token issuer.
func NewIssuer(users user.Store, jwtUtil *jwtutil.JWTUtil, refreshExpiryDays int) *Issuer {
	return &Issuer{
		users:             users,
		jwt:               jwtUtil,
		refreshExpiryDays: refreshExpiryDays,
		now:               time.Now,
	}
}

// Issue verifies the credentials and, on success, hands out a fresh token
// pair. The tenant identifier resolved for the request is embedded in the
// access token claims. Any previously stored refresh token is overwritten,
// which implicitly revokes the prior pair.
func (i *Issuer) Issue(ctx context.Context, req Request, tenantID string) (*Response, error) {
	u, err := i.users.FindByUsernameOrEmail(ctx, req.UsernameOrEmail)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.IsActive {
		return nil, apperr.ErrInactiveAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	return i.reissue(ctx, u, tenantID)
}

// Refresh rotates a token pair. The presented access token must carry a
// valid signature but is allowed to be expired; the presented refresh
// token must textually match the stored one and its expiry must not have
// passed. Any violation is a hard failure with no partial rotation.
func (i *Issuer) Refresh(ctx context.Context, req RefreshRequest, tenantID string) (*Response, error) {
	claims, err := i.jwt.ParseExpired(req.Token)
	if err != nil {
		return nil, apperr.ErrMalformedToken
	}

	u, err := i.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	if u.RefreshToken != req.RefreshToken || !u.RefreshTokenExpiry.After(i.now()) {
		return nil, apperr.ErrInvalidRefreshToken
	}

	return i.reissue(ctx, u, tenantID)
}

// reissue is the shared rotation path for login and refresh.
//
// TODO: rotate with a compare-and-swap on the stored refresh token so two
// concurrent refreshes with the same stale token cannot both succeed.
func (i *Issuer) reissue(ctx context.Context, u *model.User, tenantID string) (*Response, error) {
	accessToken, err := i.jwt.GenerateToken(u.ID, u.Email, u.UserName, tenantID, u.RoleNames())
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiry := i.now().UTC().AddDate(0, 0, i.refreshExpiryDays)
	if err := i.users.UpdateRefreshToken(ctx, u.ID, refreshToken, expiry); err != nil {
		return nil, err
	}

	return &Response{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    i.jwt.ExpiresIn(),
		UserID:       u.ID,
		UserName:     u.UserName,
		Email:        u.Email,
		Roles:        u.RoleNames(),
		TenantID:     tenantID,
		IsActive:     u.IsActive,
	}, nil
}

// generateRefreshToken creates a cryptographically random opaque token.
func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
