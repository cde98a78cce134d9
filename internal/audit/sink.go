package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/inventra/inventra/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sink receives completed trail records. A failed emission of a fully
// keyed record fails the save it belongs to; emission of deferred records
// is best-effort.
type Sink interface {
	Emit(ctx context.Context, trail *Trail) error
}

// TrailRecord is the persisted form of a trail.
type TrailRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	AuditedTable   string    `json:"table_name" gorm:"column:table_name;type:varchar(100);index"`
	TrailType      string    `json:"trail_type" gorm:"type:varchar(16)"`
	OldValues      string    `json:"old_values" gorm:"type:jsonb"`
	NewValues      string    `json:"new_values" gorm:"type:jsonb"`
	ChangedColumns string    `json:"changed_columns" gorm:"type:jsonb"`
	KeyValues      string    `json:"key_values" gorm:"type:jsonb"`
	UserID         uint      `json:"user_id" gorm:"index"`
	TenantID       string    `json:"tenant_id" gorm:"type:varchar(64);index"`
	Timestamp      time.Time `json:"timestamp" gorm:"index"`
}

// GormSink persists trail records to the audit_trails table.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink creates a Sink over the given database handle.
func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

// TableName implements the gorm table naming convention.
func (TrailRecord) TableName() string { return "audit_trails" }

func (s *GormSink) Emit(ctx context.Context, trail *Trail) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	record := TrailRecord{
		AuditedTable: trail.TableName,
		TrailType: string(trail.Type),
		UserID:    trail.UserID,
		TenantID:  trail.TenantID,
		Timestamp: trail.Timestamp,
	}

	var err error
	if record.OldValues, err = marshalJSON(trail.OldValues); err != nil {
		return err
	}
	if record.NewValues, err = marshalJSON(trail.NewValues); err != nil {
		return err
	}
	if record.ChangedColumns, err = marshalJSON(trail.ChangedColumns); err != nil {
		return err
	}
	if record.KeyValues, err = marshalJSON(trail.KeyValues); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Create(&record).Error
}

// LogSink writes trail records to the structured log. Useful as a fallback
// sink and in development.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a Sink emitting to the given logger.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ctx context.Context, trail *Trail) error {
	s.log.Info("audit trail",
		zap.String("table", trail.TableName),
		zap.String("type", string(trail.Type)),
		zap.Strings("changed_columns", trail.ChangedColumns),
		zap.Any("key_values", trail.KeyValues),
		zap.Uint("user_id", trail.UserID),
		zap.String("tenant_id", trail.TenantID),
		zap.Time("timestamp", trail.Timestamp),
	)
	return nil
}

func marshalJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
