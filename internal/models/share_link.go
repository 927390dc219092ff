package models

import (
	"time"

	"gorm.io/gorm"
)

// ShareLink grants unauthenticated read access to a project summary.
// Revocation is a soft delete.
type ShareLink struct {
	Base
	OrgID               string         `gorm:"size:36;index;not null" json:"org_id"`
	ProjectID           string         `gorm:"size:36;index;not null" json:"project_id"`
	Token               string         `gorm:"uniqueIndex;size:64;not null" json:"token"`
	HideFinance         bool           `gorm:"not null" json:"hide_finance"`
	ShowInvestorContact bool           `gorm:"not null" json:"show_investor_contact"`
	ExpiresAt           *time.Time     `gorm:"index" json:"expires_at"`
	CreatedBy           string         `gorm:"size:36" json:"created_by"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ShareLink) TableName() string { return "share_links" }

// Expired reports whether the link is past its expiry at now.
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
