package model

import (
	"time"
)

// Root tenant constants. The root tenant always exists and is the static
// fallback when a request carries no tenant hint at all.
const (
	RootTenantID    = "root"
	RootTenantName  = "Root"
	RootTenantEmail = "admin@root.com"
)

// Tenant represents a tenant record stored in the database.
// The ID doubles as the resolution identifier carried in headers, query
// parameters, route segments and JWT claims.
type Tenant struct {
	ID               string     `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name             string     `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	ConnectionString string     `json:"connection_string,omitempty" gorm:"type:text"`
	AdminEmail       string     `json:"admin_email" gorm:"type:varchar(100)"`
	IsActive         bool       `json:"is_active" gorm:"default:true"`
	ValidUpto        *time.Time `json:"valid_upto,omitempty"`
	Issuer           string     `json:"issuer,omitempty" gorm:"type:varchar(100)"`
	APIKey           string     `json:"-" gorm:"type:varchar(64);uniqueIndex"`
	AuditStamps
}

// AuditTable implements the audit record contract.
func (t *Tenant) AuditTable() string { return "tenants" }

// AuditKeys returns the primary key columns.
func (t *Tenant) AuditKeys() map[string]interface{} {
	return map[string]interface{}{"id": t.ID}
}

// AuditValues returns the non-key columns captured by the audit trail.
func (t *Tenant) AuditValues() map[string]interface{} {
	return map[string]interface{}{
		"name":              t.Name,
		"connection_string": t.ConnectionString,
		"admin_email":       t.AdminEmail,
		"is_active":         t.IsActive,
		"valid_upto":        t.ValidUpto,
		"issuer":            t.Issuer,
	}
}
