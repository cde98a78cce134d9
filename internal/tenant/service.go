package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/audit"
	"github.com/inventra/inventra/internal/model"
)

// Service manages tenant records. Every mutation runs through an audited
// save session so the trail captures before/after values.
type Service struct {
	store Store
}

// NewService creates a tenant management service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// All returns every tenant record.
func (s *Service) All(ctx context.Context) ([]model.Tenant, error) {
	return s.store.All(ctx)
}

// GetByID returns a single tenant record.
func (s *Service) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	return s.store.GetByID(ctx, id)
}

// Create adds a new tenant. The identifier and the display name must both
// be unique. A missing API key and validity window get defaults.
func (s *Service) Create(ctx context.Context, sess *audit.Session, t *model.Tenant) error {
	if _, err := s.store.GetByID(ctx, t.ID); err == nil {
		return fmt.Errorf("tenant %s: %w", t.ID, apperr.ErrDuplicate)
	} else if !errors.Is(err, apperr.ErrTenantNotFound) {
		return err
	}

	existing, err := s.store.All(ctx)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.Name == t.Name {
			return fmt.Errorf("tenant name %s: %w", t.Name, apperr.ErrDuplicate)
		}
	}

	if t.APIKey == "" {
		t.APIKey = uuid.New().String()
	}
	if t.ValidUpto == nil {
		validUpto := time.Now().UTC().AddDate(0, 1, 0)
		t.ValidUpto = &validUpto
	}
	t.IsActive = true

	sess.Create(t)
	return sess.Save(ctx, &storeWriter{store: s.store})
}

// Update modifies an existing tenant record.
func (s *Service) Update(ctx context.Context, sess *audit.Session, id string, apply func(*model.Tenant)) (*model.Tenant, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	original := t.AuditValues()
	apply(t)

	for _, other := range existing {
		if other.ID != t.ID && other.Name == t.Name {
			return nil, fmt.Errorf("tenant name %s: %w", t.Name, apperr.ErrDuplicate)
		}
	}

	sess.Update(t, original)
	if err := sess.Save(ctx, &storeWriter{store: s.store}); err != nil {
		return nil, err
	}
	return t, nil
}

// Activate turns an inactive tenant back on.
func (s *Service) Activate(ctx context.Context, sess *audit.Session, id string) (*model.Tenant, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsActive {
		return nil, fmt.Errorf("tenant %s is already active", id)
	}

	original := t.AuditValues()
	t.IsActive = true
	sess.Update(t, original)
	if err := sess.Save(ctx, &storeWriter{store: s.store}); err != nil {
		return nil, err
	}
	return t, nil
}

// Deactivate turns an active tenant off.
func (s *Service) Deactivate(ctx context.Context, sess *audit.Session, id string) (*model.Tenant, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, fmt.Errorf("tenant %s is already deactivated", id)
	}

	original := t.AuditValues()
	t.IsActive = false
	sess.Update(t, original)
	if err := sess.Save(ctx, &storeWriter{store: s.store}); err != nil {
		return nil, err
	}
	return t, nil
}

// storeWriter adapts the tenant store to the audited save pipeline.
type storeWriter struct {
	store Store
}

func (w *storeWriter) Create(ctx context.Context, entity interface{}) error {
	t, ok := entity.(*model.Tenant)
	if !ok {
		return errors.New("tenant writer received a non-tenant entity")
	}
	return w.store.Add(ctx, t)
}

func (w *storeWriter) Update(ctx context.Context, entity interface{}) error {
	t, ok := entity.(*model.Tenant)
	if !ok {
		return errors.New("tenant writer received a non-tenant entity")
	}
	return w.store.Update(ctx, t)
}

func (w *storeWriter) Delete(ctx context.Context, entity interface{}) error {
	return errors.New("tenant records cannot be deleted")
}
