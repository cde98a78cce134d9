package token

import (
	"context"
	"testing"
	"time"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/pkg/jwtutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const signingKey = "test-signing-key"

type fakeUserStore struct {
	users map[uint]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uint]*model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *fakeUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *fakeUserStore) FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.User, error) {
	for _, u := range s.users {
		if u.UserName == usernameOrEmail || u.Email == usernameOrEmail {
			return u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *fakeUserStore) Create(ctx context.Context, u *model.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) UpdateRefreshToken(ctx context.Context, userID uint, token string, expiry time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.RefreshToken = token
	u.RefreshTokenExpiry = expiry
	return nil
}

func newTestJWT(expirationMinutes int) *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:        signingKey,
		Issuer:            "inventra-test",
		Audience:          "inventra-test",
		ExpirationMinutes: expirationMinutes,
	})
}

func newTestUser(t *testing.T) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &model.User{
		ID:           7,
		Email:        "alice@acme.test",
		UserName:     "alice",
		PasswordHash: string(hash),
		IsActive:     true,
		TenantID:     "t1",
		Roles:        []model.Role{{Name: "admin"}, {Name: "viewer"}},
	}
}

func TestIssueSuccess(t *testing.T) {
	jwtUtil := newTestJWT(60)
	u := newTestUser(t)
	store := newFakeUserStore(u)
	issuer := NewIssuer(store, jwtUtil, 7)

	resp, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)

	require.Equal(t, uint(7), resp.UserID)
	require.Equal(t, "alice", resp.UserName)
	require.Equal(t, "t1", resp.TenantID)
	require.Equal(t, 3600, resp.ExpiresIn)
	require.NotEmpty(t, resp.RefreshToken)

	// The stored refresh token rotated to the issued one.
	require.Equal(t, resp.RefreshToken, u.RefreshToken)
	require.True(t, u.RefreshTokenExpiry.After(time.Now()))

	// The access token carries the full identity and tenant claims.
	claims, err := jwtUtil.ValidateToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, uint(7), claims.UserID())
	require.Equal(t, "alice@acme.test", claims.Email)
	require.Equal(t, "t1", claims.Tenant)
	require.Equal(t, []string{"admin", "viewer"}, claims.Roles)
}

func TestIssueByEmail(t *testing.T) {
	u := newTestUser(t)
	issuer := NewIssuer(newFakeUserStore(u), newTestJWT(60), 7)

	resp, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice@acme.test",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)
	require.Equal(t, "alice@acme.test", resp.Email)
}

func TestIssueWrongPassword(t *testing.T) {
	issuer := NewIssuer(newFakeUserStore(newTestUser(t)), newTestJWT(60), 7)

	_, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "wrong",
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestIssueUnknownUser(t *testing.T) {
	issuer := NewIssuer(newFakeUserStore(), newTestJWT(60), 7)

	_, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "nobody",
		Password:        "s3cret",
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestIssueInactiveAccount(t *testing.T) {
	u := newTestUser(t)
	u.IsActive = false
	issuer := NewIssuer(newFakeUserStore(u), newTestJWT(60), 7)

	_, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrInactiveAccount)
}

func TestRefreshRotatesPair(t *testing.T) {
	jwtUtil := newTestJWT(60)
	u := newTestUser(t)
	store := newFakeUserStore(u)
	issuer := NewIssuer(store, jwtUtil, 7)

	first, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)

	second, err := issuer.Refresh(context.Background(), RefreshRequest{
		Token:        first.Token,
		RefreshToken: first.RefreshToken,
	}, "t1")
	require.NoError(t, err)

	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, second.RefreshToken, u.RefreshToken)

	// The rotated-out refresh token no longer works.
	_, err = issuer.Refresh(context.Background(), RefreshRequest{
		Token:        first.Token,
		RefreshToken: first.RefreshToken,
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	u := newTestUser(t)
	store := newFakeUserStore(u)
	issuer := NewIssuer(store, newTestJWT(60), 7)

	first, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)

	// Mint an already-expired access token with the same key; only the
	// signature matters on refresh.
	expired, err := newTestJWT(-5).GenerateToken(u.ID, u.Email, u.UserName, "t1", u.RoleNames())
	require.NoError(t, err)

	resp, err := issuer.Refresh(context.Background(), RefreshRequest{
		Token:        expired,
		RefreshToken: first.RefreshToken,
	}, "t1")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
}

func TestRefreshRejectsTamperedToken(t *testing.T) {
	u := newTestUser(t)
	issuer := NewIssuer(newFakeUserStore(u), newTestJWT(60), 7)

	first, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)

	_, err = issuer.Refresh(context.Background(), RefreshRequest{
		Token:        first.Token + "tampered",
		RefreshToken: first.RefreshToken,
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrMalformedToken)
}

func TestRefreshRejectsWrongRefreshToken(t *testing.T) {
	u := newTestUser(t)
	issuer := NewIssuer(newFakeUserStore(u), newTestJWT(60), 7)

	first, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)

	_, err = issuer.Refresh(context.Background(), RefreshRequest{
		Token:        first.Token,
		RefreshToken: "not-the-stored-one",
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)
}

func TestRefreshRejectsExpiredRefreshToken(t *testing.T) {
	u := newTestUser(t)
	store := newFakeUserStore(u)
	issuer := NewIssuer(store, newTestJWT(60), 7)

	first, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)

	// Jump past the refresh window.
	issuer.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }

	_, err = issuer.Refresh(context.Background(), RefreshRequest{
		Token:        first.Token,
		RefreshToken: first.RefreshToken,
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)
}

func TestRefreshUnknownUser(t *testing.T) {
	u := newTestUser(t)
	store := newFakeUserStore(u)
	issuer := NewIssuer(store, newTestJWT(60), 7)

	first, err := issuer.Issue(context.Background(), Request{
		UsernameOrEmail: "alice",
		Password:        "s3cret",
	}, "t1")
	require.NoError(t, err)

	delete(store.users, u.ID)

	_, err = issuer.Refresh(context.Background(), RefreshRequest{
		Token:        first.Token,
		RefreshToken: first.RefreshToken,
	}, "t1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
