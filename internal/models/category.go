package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups tasks, logs and spending inside a project (e.g. foundation, electrical).
type Category struct {
	Base
	OrgID     string          `gorm:"size:36;index;not null" json:"org_id"`
	ProjectID string          `gorm:"size:36;index;not null" json:"project_id"`
	Name      string          `gorm:"size:200;not null" json:"name"`
	Budget    decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"budget"`
	SortOrder int             `gorm:"default:0" json:"sort_order"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Category) TableName() string { return "categories" }
