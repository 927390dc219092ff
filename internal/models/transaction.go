package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction is a money movement against a project budget.
type Transaction struct {
	Base
	OrgID         string                      `gorm:"size:36;index;not null" json:"org_id"`
	ProjectID     string                      `gorm:"size:36;index;not null" json:"project_id"`
	CategoryID    *string                     `gorm:"size:36;index" json:"category_id"`
	Type          TransactionType             `gorm:"size:20;index;not null" json:"type"`
	Amount        decimal.Decimal             `gorm:"type:decimal(18,2);not null" json:"amount"`
	CostType      string                      `gorm:"size:50" json:"cost_type"` // material, labor, equipment, ...
	Description   string                      `gorm:"type:text" json:"description"`
	PaymentStatus PaymentStatus               `gorm:"size:20;index;default:PENDING" json:"payment_status"`
	PaidAmount    decimal.Decimal             `gorm:"type:decimal(18,2);default:0" json:"paid_amount"`
	PaymentDate   *time.Time                  `json:"payment_date"`
	Attachments   datatypes.JSONSlice[string] `json:"attachments"`
	CreatedBy     string                      `gorm:"size:36" json:"created_by"`
	DeletedAt     gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }
