package audit

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/inventra/inventra/prometheus"
)

type operation int

const (
	opCreate operation = iota
	opUpdate
	opDelete
)

type entry struct {
	entity   Recordable
	op       operation
	original map[string]interface{}
	trail    *Trail
	pending  []string
	skip     bool
}

// Session is a per-request unit of work that brackets a save operation
// with audit capture. Aggregates are tracked with their intended
// operation; Save stamps them, classifies the trails, performs the writes
// and emits the records. A session is not safe for concurrent use; one
// request runs one session.
type Session struct {
	userID   uint
	tenantID string
	sink     Sink
	entries  []*entry
	now      func() time.Time
}

// NewSession creates a session acting as the given user within the given
// tenant. Emitted trails carry both.
func NewSession(userID uint, tenantID string, sink Sink) *Session {
	return &Session{
		userID:   userID,
		tenantID: tenantID,
		sink:     sink,
		now:      time.Now,
	}
}

// Create tracks a newly created aggregate.
func (s *Session) Create(entity Recordable) {
	s.entries = append(s.entries, &entry{entity: entity, op: opCreate})
}

// Update tracks a modified aggregate together with the snapshot of its
// column values taken before the mutation. Only columns that differ from
// the snapshot end up in the trail record.
func (s *Session) Update(entity Recordable, original map[string]interface{}) {
	s.entries = append(s.entries, &entry{entity: entity, op: opUpdate, original: original})
}

// Delete tracks an aggregate marked for deletion. The pre-change column
// values are snapshotted immediately.
func (s *Session) Delete(entity Recordable) {
	s.entries = append(s.entries, &entry{entity: entity, op: opDelete, original: entity.AuditValues()})
}

// Save runs the audited save pipeline: stamp and classify every tracked
// aggregate, perform the writes, then emit the trail records. Trails only
// go out once the writes succeeded, so a failed write never leaves records
// describing a mutation that was not committed. A failed emission of a
// fully keyed record still fails the save; a failed emission of a
// deferred record is logged and counted but never surfaced to the caller.
func (s *Session) Save(ctx context.Context, w Writer) error {
	at := s.now().UTC()

	s.stamp(at)
	if err := s.classify(at); err != nil {
		return err
	}

	if err := s.write(ctx, w); err != nil {
		return err
	}

	// Records whose columns were fully known before the write go out
	// first, in tracking order.
	for _, e := range s.entries {
		if e.skip || len(e.pending) > 0 {
			continue
		}
		if err := s.sink.Emit(ctx, e.trail); err != nil {
			return fmt.Errorf("audit emit failed: %w", err)
		}
		prometheus.RecordAuditTrail(string(e.trail.Type))
	}

	s.resolveDeferred(ctx)
	return nil
}

// stamp fills audit bookkeeping fields and converts deletes of
// soft-deletable aggregates into updates.
func (s *Session) stamp(at time.Time) {
	for _, e := range s.entries {
		switch e.op {
		case opCreate:
			if a, ok := e.entity.(Auditable); ok {
				a.SetCreated(s.userID, at)
			}
		case opUpdate:
			if a, ok := e.entity.(Auditable); ok {
				a.SetModified(s.userID, at)
			}
		case opDelete:
			if sd, ok := e.entity.(SoftDeletable); ok {
				sd.MarkDeleted(s.userID, at)
				e.op = opUpdate
			}
		}
	}
}

func (s *Session) classify(at time.Time) error {
	for _, e := range s.entries {
		switch e.op {
		case opCreate:
			e.trail = newTrail(e.entity.AuditTable(), TrailCreate, s.userID, s.tenantID, at)
			for col, val := range e.entity.AuditKeys() {
				if isZeroValue(val) {
					e.pending = append(e.pending, col)
					continue
				}
				e.trail.KeyValues[col] = val
			}
			for col, val := range e.entity.AuditValues() {
				e.trail.NewValues[col] = val
			}

		case opUpdate:
			current := e.entity.AuditValues()
			if e.original == nil {
				e.original = current
			}

			trailType := TrailUpdate
			if sd, ok := e.entity.(SoftDeletable); ok {
				col := sd.SoftDeleteColumn()
				if isNilValue(e.original[col]) && !isNilValue(current[col]) {
					trailType = TrailDelete
				}
			}

			e.trail = newTrail(e.entity.AuditTable(), trailType, s.userID, s.tenantID, at)
			for col, val := range current {
				if reflect.DeepEqual(e.original[col], val) {
					continue
				}
				e.trail.ChangedColumns = append(e.trail.ChangedColumns, col)
				e.trail.OldValues[col] = e.original[col]
				e.trail.NewValues[col] = val
			}
			sort.Strings(e.trail.ChangedColumns)

			if len(e.trail.ChangedColumns) == 0 {
				// Nothing actually changed, no trail to record.
				e.skip = true
				continue
			}

			for col, val := range e.entity.AuditKeys() {
				e.trail.KeyValues[col] = val
			}

		case opDelete:
			e.trail = newTrail(e.entity.AuditTable(), TrailDelete, s.userID, s.tenantID, at)
			for col, val := range e.original {
				e.trail.OldValues[col] = val
			}
			for col, val := range e.entity.AuditKeys() {
				e.trail.KeyValues[col] = val
			}
		}
	}
	return nil
}

func (s *Session) write(ctx context.Context, w Writer) error {
	for _, e := range s.entries {
		var err error
		switch e.op {
		case opCreate:
			err = w.Create(ctx, e.entity)
		case opUpdate:
			err = w.Update(ctx, e.entity)
		case opDelete:
			err = w.Delete(ctx, e.entity)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveDeferred folds store-assigned key values into the deferred trail
// records and emits them. The underlying write is already committed, so
// failures here are observability-only.
func (s *Session) resolveDeferred(ctx context.Context) {
	for _, e := range s.entries {
		if e.skip || len(e.pending) == 0 {
			continue
		}

		keys := e.entity.AuditKeys()
		values := e.entity.AuditValues()
		for _, col := range e.pending {
			if val, ok := keys[col]; ok {
				e.trail.KeyValues[col] = val
			} else if val, ok := values[col]; ok {
				e.trail.NewValues[col] = val
			}
		}

		if err := s.sink.Emit(ctx, e.trail); err != nil {
			prometheus.AuditEmitErrorCounter.Inc()
			zap.L().Error("failed to emit deferred audit trail",
				zap.String("table", e.trail.TableName),
				zap.String("type", string(e.trail.Type)),
				zap.Error(err))
			continue
		}
		prometheus.RecordAuditTrail(string(e.trail.Type))
	}
}

func isZeroValue(v interface{}) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

func isNilValue(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
