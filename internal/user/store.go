package user

import (
	"context"
	"errors"
	"time"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/prometheus"
	"gorm.io/gorm"
)

// Store is the user lookup and persistence surface needed by the identity
// control plane.
type Store interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateRefreshToken(ctx context.Context, userID uint, token string, expiry time.Time) error
}

// GormStore is the database-backed user store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a user store over the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var u model.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var u model.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&u, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var u model.User
	err := s.db.WithContext(ctx).Preload("Roles").
		First(&u, "user_name = ? OR email = ?", usernameOrEmail, usernameOrEmail).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) Create(ctx context.Context, user *model.User) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return s.db.WithContext(ctx).Create(user).Error
}

// UpdateRefreshToken overwrites the stored refresh token and its expiry in
// a single row update. Overwriting implicitly revokes the previous pair.
func (s *GormStore) UpdateRefreshToken(ctx context.Context, userID uint, token string, expiry time.Time) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"refresh_token":        token,
			"refresh_token_expiry": expiry,
		}).Error
}
