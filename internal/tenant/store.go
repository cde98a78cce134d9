package tenant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/model"
	"github.com/inventra/inventra/prometheus"
	"gorm.io/gorm"
)

// Store is the tenant record lookup used by resolution and tenant
// management. Implementations must be safe for concurrent use; single
// record writes rely on the backing store's atomic upsert semantics.
type Store interface {
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Tenant, error)
	All(ctx context.Context) ([]model.Tenant, error)
	Add(ctx context.Context, tenant *model.Tenant) error
	Update(ctx context.Context, tenant *model.Tenant) error
}

// GormStore is the database-backed tenant store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a tenant store over the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant model.Tenant
	err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (s *GormStore) GetByAPIKey(ctx context.Context, apiKey string) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant model.Tenant
	err := s.db.WithContext(ctx).First(&tenant, "api_key = ?", apiKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (s *GormStore) All(ctx context.Context) ([]model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *GormStore) Add(ctx context.Context, tenant *model.Tenant) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return s.db.WithContext(ctx).Create(tenant).Error
}

func (s *GormStore) Update(ctx context.Context, tenant *model.Tenant) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return s.db.WithContext(ctx).Save(tenant).Error
}

// MemoryStore is an in-memory tenant store guarded by a mutex. It backs
// tests and can serve as a startup cache seeded from the database.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]model.Tenant
}

// NewMemoryStore creates an empty in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]model.Tenant)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenant, ok := s.tenants[id]
	if !ok {
		return nil, apperr.ErrTenantNotFound
	}
	return &tenant, nil
}

func (s *MemoryStore) GetByAPIKey(ctx context.Context, apiKey string) (*model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tenant := range s.tenants {
		if tenant.APIKey == apiKey {
			t := tenant
			return &t, nil
		}
	}
	return nil, apperr.ErrTenantNotFound
}

func (s *MemoryStore) All(ctx context.Context) ([]model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenants := make([]model.Tenant, 0, len(s.tenants))
	for _, tenant := range s.tenants {
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

func (s *MemoryStore) Add(ctx context.Context, tenant *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ID]; ok {
		return apperr.ErrDuplicate
	}
	s.tenants[tenant.ID] = *tenant
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, tenant *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ID]; !ok {
		return apperr.ErrTenantNotFound
	}
	s.tenants[tenant.ID] = *tenant
	return nil
}
