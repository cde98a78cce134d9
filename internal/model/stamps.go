package model

import "time"

// AuditStamps carries the creation/modification bookkeeping shared by all
// audited aggregates. The save pipeline fills these in before every write.
type AuditStamps struct {
	CreatedOn      time.Time  `json:"created_on"`
	CreatedBy      uint       `json:"created_by"`
	LastModifiedOn *time.Time `json:"last_modified_on,omitempty"`
	LastModifiedBy *uint      `json:"last_modified_by,omitempty"`
}

// SetCreated stamps the creating user and time.
func (s *AuditStamps) SetCreated(by uint, at time.Time) {
	s.CreatedBy = by
	s.CreatedOn = at
}

// SetModified stamps the modifying user and time.
func (s *AuditStamps) SetModified(by uint, at time.Time) {
	s.LastModifiedBy = &by
	at2 := at
	s.LastModifiedOn = &at2
}

// SoftDelete marks an aggregate as deleted instead of removing the row.
// Aggregates embedding it declare the soft-delete capability; the save
// pipeline redirects their physical deletes into updates.
type SoftDelete struct {
	IsDeleted bool       `json:"is_deleted" gorm:"default:false"`
	DeletedOn *time.Time `json:"deleted_on,omitempty"`
	DeletedBy *uint      `json:"deleted_by,omitempty"`
}

// MarkDeleted sets the deletion flag, timestamp and acting user.
func (s *SoftDelete) MarkDeleted(by uint, at time.Time) {
	s.IsDeleted = true
	s.DeletedBy = &by
	at2 := at
	s.DeletedOn = &at2
}

// SoftDeleteColumn names the nullable timestamp column whose unset-to-set
// transition identifies a soft deletion.
func (s *SoftDelete) SoftDeleteColumn() string {
	return "deleted_on"
}
