package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionService struct {
	db *gorm.DB
}

func NewTransactionService(db *gorm.DB) *TransactionService {
	return &TransactionService{db: db}
}

type TransactionListRequest struct {
	Page          int    `form:"page" binding:"omitempty,min=1"`
	Limit         int    `form:"limit" binding:"omitempty,min=1,max=100"`
	ProjectID     string `form:"project_id"`
	CategoryID    string `form:"category_id"`
	Type          string `form:"type" binding:"omitempty,oneof=ADVANCE EXPENSE"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=PENDING PARTIAL PAID"`
}

type CreateTransactionRequest struct {
	ProjectID   string                 `json:"project_id" binding:"required"`
	CategoryID  *string                `json:"category_id"`
	Type        models.TransactionType `json:"type" binding:"required,oneof=ADVANCE EXPENSE"`
	Amount      decimal.Decimal        `json:"amount"`
	CostType    string                 `json:"cost_type" binding:"max=50"`
	Description string                 `json:"description"`
	Attachments []string               `json:"attachments" binding:"omitempty,dive,url"`
}

// UpdatePaymentRequest records money paid against a transaction. Sending only
// payment_status PAID settles the full amount.
type UpdatePaymentRequest struct {
	PaidAmount    *decimal.Decimal      `json:"paid_amount"`
	PaymentStatus *models.PaymentStatus `json:"payment_status" binding:"omitempty,oneof=PENDING PARTIAL PAID"`
	PaymentDate   *time.Time            `json:"payment_date"`
	Attachments   []string              `json:"attachments" binding:"omitempty,dive,url"`
}

// DerivePaymentStatus maps the paid amount onto PENDING, PARTIAL or PAID.
func DerivePaymentStatus(amount, paid decimal.Decimal) models.PaymentStatus {
	switch {
	case paid.IsZero():
		return models.PaymentPending
	case paid.LessThan(amount):
		return models.PaymentPartial
	default:
		return models.PaymentPaid
	}
}

func findTransaction(db *gorm.DB, orgID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := db.Scopes(models.TenantScope(orgID)).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("Transaction not found")
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *TransactionService) List(ctx context.Context, p Principal, req *TransactionListRequest) ([]models.Transaction, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.Transaction{}).Scopes(models.TenantScope(p.OrgID))
	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.CategoryID != "" {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Transaction
	err := query.Scopes(models.Paginate(req.Page, req.Limit)).Order("created_at DESC").Find(&items).Error
	return items, total, err
}

// Create books a new PENDING transaction with nothing paid yet
func (s *TransactionService) Create(ctx context.Context, p Principal, req *CreateTransactionRequest) (*models.Transaction, error) {
	if !p.Allowed(TransactionAuthors...) {
		return nil, response.NewForbidden("Role cannot record transactions")
	}
	if !req.Amount.IsPositive() {
		return nil, response.NewValidation("Amount must be positive").WithField("amount", "must be greater than 0")
	}
	if !models.ValidMoney(req.Amount) {
		return nil, response.NewValidation("Amount has too many decimal places").WithField("amount", "must have at most 2 decimal places")
	}

	db := s.db.WithContext(ctx)
	if _, err := findProject(db, p.OrgID, req.ProjectID); err != nil {
		return nil, err
	}
	if req.CategoryID != nil && *req.CategoryID != "" {
		if _, err := findCategoryInProject(db, p.OrgID, req.ProjectID, *req.CategoryID); err != nil {
			return nil, err
		}
	} else {
		req.CategoryID = nil
	}

	tx := models.Transaction{
		OrgID:         p.OrgID,
		ProjectID:     req.ProjectID,
		CategoryID:    req.CategoryID,
		Type:          req.Type,
		Amount:        req.Amount,
		CostType:      req.CostType,
		Description:   req.Description,
		PaymentStatus: models.PaymentPending,
		PaidAmount:    decimal.Zero,
		Attachments:   datatypes.JSONSlice[string](req.Attachments),
		CreatedBy:     p.UserID,
	}
	if tx.Attachments == nil {
		tx.Attachments = datatypes.JSONSlice[string]{}
	}
	if err := db.Create(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdatePayment records a payment. The stored status is always derived from
// paid_amount so the two never disagree.
func (s *TransactionService) UpdatePayment(ctx context.Context, p Principal, id string, req *UpdatePaymentRequest) (*models.Transaction, error) {
	if !p.Allowed(PaymentEditors...) {
		return nil, response.NewForbidden("Only accountants can update payments")
	}

	db := s.db.WithContext(ctx)
	tx, err := findTransaction(db, p.OrgID, id)
	if err != nil {
		return nil, err
	}

	paid := tx.PaidAmount
	switch {
	case req.PaidAmount != nil:
		paid = *req.PaidAmount
	case req.PaymentStatus != nil && *req.PaymentStatus == models.PaymentPaid:
		paid = tx.Amount
	case req.PaymentStatus != nil && *req.PaymentStatus == models.PaymentPending:
		paid = decimal.Zero
	case req.PaymentStatus != nil:
		return nil, response.NewValidation("paid_amount is required for a partial payment").
			WithField("paid_amount", "is required when payment_status is PARTIAL")
	}

	if !models.ValidMoney(paid) {
		return nil, response.NewValidation("Paid amount has too many decimal places").
			WithField("paid_amount", "must have at most 2 decimal places")
	}
	if paid.IsNegative() || paid.GreaterThan(tx.Amount) {
		return nil, response.NewValidation("Paid amount must be between 0 and the transaction amount").
			WithField("paid_amount", "must be between 0 and "+tx.Amount.StringFixed(2))
	}

	status := DerivePaymentStatus(tx.Amount, paid)
	if req.PaymentStatus != nil && *req.PaymentStatus != status {
		return nil, response.NewValidation("payment_status does not match paid_amount").
			WithField("payment_status", "must be "+string(status)+" for the given paid_amount")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"paid_amount":    paid,
		"payment_status": status,
		"updated_at":     now,
	}
	switch {
	case req.PaymentDate != nil:
		updates["payment_date"] = req.PaymentDate.UTC()
	case paid.IsPositive() && tx.PaymentDate == nil:
		updates["payment_date"] = now
	case paid.IsZero():
		updates["payment_date"] = nil
	}
	if req.Attachments != nil {
		updates["attachments"] = datatypes.JSONSlice[string](req.Attachments)
	}

	if err := db.Model(tx).Updates(updates).Error; err != nil {
		return nil, err
	}
	return findTransaction(db, p.OrgID, id)
}
