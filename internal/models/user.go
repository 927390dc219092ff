package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a member of an organization
type User struct {
	Base
	OrgID     string         `gorm:"size:36;index;not null" json:"org_id"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	Name      string         `gorm:"size:100" json:"name"`
	Role      Role           `gorm:"size:20;not null" json:"role"`
	AuthType  string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
