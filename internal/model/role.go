package model

// Role represents an assignable role within a tenant
type Role struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(50);uniqueIndex:idx_roles_tenant_name"`
	TenantID    string `json:"tenant_id" gorm:"type:varchar(64);uniqueIndex:idx_roles_tenant_name"`
	Description string `json:"description" gorm:"type:text"`
	AuditStamps
}
