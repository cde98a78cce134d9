package audit

import (
	"context"
	"time"

	"github.com/inventra/inventra/prometheus"
	"gorm.io/gorm"
)

// Writer performs the underlying persistence operations for a session
// save. The session decides which operation each tracked aggregate gets;
// in particular, soft deletions arrive here as updates.
type Writer interface {
	Create(ctx context.Context, entity interface{}) error
	Update(ctx context.Context, entity interface{}) error
	Delete(ctx context.Context, entity interface{}) error
}

// GormWriter writes tracked aggregates through a gorm handle.
type GormWriter struct {
	db *gorm.DB
}

// NewGormWriter creates a Writer over the given database handle.
func NewGormWriter(db *gorm.DB) *GormWriter {
	return &GormWriter{db: db}
}

func (w *GormWriter) Create(ctx context.Context, entity interface{}) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return w.db.WithContext(ctx).Create(entity).Error
}

func (w *GormWriter) Update(ctx context.Context, entity interface{}) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return w.db.WithContext(ctx).Save(entity).Error
}

func (w *GormWriter) Delete(ctx context.Context, entity interface{}) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	return w.db.WithContext(ctx).Delete(entity).Error
}
