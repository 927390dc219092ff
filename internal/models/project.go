package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectScale describes the physical size of a build.
type ProjectScale struct {
	Area   float64 `json:"area"`
	Floors int     `json:"floors"`
}

// Project represents a construction project owned by an organization
type Project struct {
	Base
	OrgID         string                           `gorm:"size:36;index;not null" json:"org_id"`
	Name          string                           `gorm:"size:200;not null" json:"name"`
	Status        ProjectStatus                    `gorm:"size:20;index;default:planning" json:"status"`
	StartDate     time.Time                        `gorm:"type:date" json:"start_date"`
	EndDate       *time.Time                       `gorm:"type:date" json:"end_date"`
	BudgetTotal   decimal.Decimal                  `gorm:"type:decimal(18,2);default:0" json:"budget_total"`
	Currency      string                           `gorm:"size:3;default:VND" json:"currency"`
	Address       string                           `gorm:"size:500" json:"address"`
	Scale         datatypes.JSONType[ProjectScale] `json:"scale"`
	InvestorName  string                           `gorm:"size:200" json:"investor_name"`
	InvestorPhone string                           `gorm:"size:50" json:"investor_phone"`
	Description   string                           `gorm:"type:text" json:"description"`
	ThumbnailURL  string                           `gorm:"size:1000" json:"thumbnail_url"`
	CountryCode   string                           `gorm:"size:8" json:"country_code"` // holiday calendar for schedule metrics
	CreatedBy     string                           `gorm:"size:36" json:"created_by"`
	DeletedAt     gorm.DeletedAt                   `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }
