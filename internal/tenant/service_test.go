package tenant

import (
	"context"
	"testing"

	"github.com/inventra/inventra/internal/apperr"
	"github.com/inventra/inventra/internal/audit"
	"github.com/inventra/inventra/internal/model"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	trails []*audit.Trail
}

func (s *recordingSink) Emit(ctx context.Context, trail *audit.Trail) error {
	s.trails = append(s.trails, trail)
	return nil
}

func newTestService(t *testing.T) (*Service, *recordingSink) {
	t.Helper()
	return NewService(newTestStore(t)), &recordingSink{}
}

func session(sink audit.Sink) *audit.Session {
	return audit.NewSession(1, model.RootTenantID, sink)
}

func TestServiceCreateDefaults(t *testing.T) {
	svc, sink := newTestService(t)

	tn := &model.Tenant{ID: "beta", Name: "Beta Inc"}
	require.NoError(t, svc.Create(context.Background(), session(sink), tn))

	require.NotEmpty(t, tn.APIKey)
	require.NotNil(t, tn.ValidUpto)
	require.True(t, tn.IsActive)

	stored, err := svc.GetByID(context.Background(), "beta")
	require.NoError(t, err)
	require.Equal(t, "Beta Inc", stored.Name)

	require.Len(t, sink.trails, 1)
	require.Equal(t, audit.TrailCreate, sink.trails[0].Type)
	require.Equal(t, "tenants", sink.trails[0].TableName)
	require.Equal(t, "beta", sink.trails[0].KeyValues["id"])
}

func TestServiceCreateDuplicateID(t *testing.T) {
	svc, sink := newTestService(t)

	err := svc.Create(context.Background(), session(sink), &model.Tenant{ID: "acme", Name: "Another"})
	require.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestServiceCreateDuplicateName(t *testing.T) {
	svc, sink := newTestService(t)

	err := svc.Create(context.Background(), session(sink), &model.Tenant{ID: "acme2", Name: "Acme Corp"})
	require.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestServiceUpdateRecordsChanges(t *testing.T) {
	svc, sink := newTestService(t)

	updated, err := svc.Update(context.Background(), session(sink), "acme", func(t *model.Tenant) {
		t.AdminEmail = "ops@acme.test"
	})
	require.NoError(t, err)
	require.Equal(t, "ops@acme.test", updated.AdminEmail)

	require.Len(t, sink.trails, 1)
	trail := sink.trails[0]
	require.Equal(t, audit.TrailUpdate, trail.Type)
	require.Equal(t, []string{"admin_email"}, trail.ChangedColumns)
	require.Equal(t, "ops@acme.test", trail.NewValues["admin_email"])
}

func TestServiceUpdateUnknownTenant(t *testing.T) {
	svc, sink := newTestService(t)

	_, err := svc.Update(context.Background(), session(sink), "ghost", func(t *model.Tenant) {})
	require.ErrorIs(t, err, apperr.ErrTenantNotFound)
}

func TestServiceUpdateRejectsNameCollision(t *testing.T) {
	svc, sink := newTestService(t)

	_, err := svc.Update(context.Background(), session(sink), "acme", func(t *model.Tenant) {
		t.Name = model.RootTenantName
	})
	require.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestServiceActivationCycle(t *testing.T) {
	svc, sink := newTestService(t)

	deactivated, err := svc.Deactivate(context.Background(), session(sink), "acme")
	require.NoError(t, err)
	require.False(t, deactivated.IsActive)

	// Deactivating twice is rejected.
	_, err = svc.Deactivate(context.Background(), session(sink), "acme")
	require.Error(t, err)

	activated, err := svc.Activate(context.Background(), session(sink), "acme")
	require.NoError(t, err)
	require.True(t, activated.IsActive)

	require.Len(t, sink.trails, 2)
	require.Equal(t, []string{"is_active"}, sink.trails[0].ChangedColumns)
	require.Equal(t, false, sink.trails[0].NewValues["is_active"])
	require.Equal(t, true, sink.trails[1].NewValues["is_active"])
}
