package model

import (
	"time"
)

// User represents the user model stored in the database
type User struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	Email              string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	UserName           string    `json:"user_name" gorm:"type:varchar(100);uniqueIndex"`
	PasswordHash       string    `json:"-" gorm:"type:varchar(255)"`
	IsActive           bool      `json:"is_active" gorm:"default:true"`
	TenantID           string    `json:"tenant_id" gorm:"type:varchar(64);index"`
	RefreshToken       string    `json:"-" gorm:"type:varchar(255)"`
	RefreshTokenExpiry time.Time `json:"-"`
	Roles              []Role    `json:"roles,omitempty" gorm:"many2many:user_roles"`
	AuditStamps
}

// RoleNames returns the names of the user's assigned roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
