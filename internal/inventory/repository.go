package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/audit"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/prometheus"
	"gorm.io/gorm"
)

// NotDeleted scopes queries to rows that have not been soft deleted.
// Soft-deletable aggregates register this scope explicitly on their read
// paths instead of relying on a global filter.
func NotDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// Repository persists products through the audited save pipeline. Products
// declare the soft-delete capability, so Delete never removes a row.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a product repository over the given handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID loads a live product scoped to the given tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID string, id uint) (*model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var p model.Product
	err := r.db.WithContext(ctx).Scopes(NotDeleted).
		Where("tenant_id = ?", tenantID).
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns the live products of a tenant.
func (r *Repository) List(ctx context.Context, tenantID string) ([]model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(NotDeleted).
		Where("tenant_id = ?", tenantID).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Create tracks and saves a new product. The store-assigned ID is folded
// into the trail record after the insert.
func (r *Repository) Create(ctx context.Context, sess *audit.Session, p *model.Product) error {
	sess.Create(p)
	return sess.Save(ctx, audit.NewGormWriter(r.db))
}

// Update applies a mutation to an existing product and saves it with its
// pre-change snapshot.
func (r *Repository) Update(ctx context.Context, sess *audit.Session, tenantID string, id uint, apply func(*model.Product)) (*model.Product, error) {
	p, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	original := p.AuditValues()
	apply(p)

	sess.Update(p, original)
	if err := sess.Save(ctx, audit.NewGormWriter(r.db)); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete marks a product for deletion. The save pipeline converts the
// operation into a flagged update and records a Delete-typed trail.
func (r *Repository) Delete(ctx context.Context, sess *audit.Session, tenantID string, id uint) error {
	p, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	sess.Delete(p)
	return sess.Save(ctx, audit.NewGormWriter(r.db))
}
