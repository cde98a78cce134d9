package audit

import "time"

// Recordable is implemented by aggregates that take part in the audited
// save pipeline. Column sets are declared explicitly; the pipeline never
// discovers them through runtime introspection.
type Recordable interface {
	// AuditTable names the backing table of the aggregate.
	AuditTable() string
	// AuditKeys returns the primary-key columns. A zero value marks a key
	// that the store assigns on insert; its trail record is deferred until
	// after the save resolves it.
	AuditKeys() map[string]interface{}
	// AuditValues returns the non-key columns captured by trail records.
	AuditValues() map[string]interface{}
}

// Auditable aggregates carry creation/modification stamps that the save
// pipeline fills in before every write.
type Auditable interface {
	Recordable
	SetCreated(by uint, at time.Time)
	SetModified(by uint, at time.Time)
}

// SoftDeletable aggregates declare that physical deletes must be converted
// into flagged updates. The declared capability drives pipeline dispatch.
type SoftDeletable interface {
	// MarkDeleted sets the deletion flag, timestamp and acting user.
	MarkDeleted(by uint, at time.Time)
	// SoftDeleteColumn names the nullable timestamp column whose
	// unset-to-set transition identifies a soft deletion.
	SoftDeleteColumn() string
}
