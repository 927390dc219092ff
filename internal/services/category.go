package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/gorm"
)

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

type CreateCategoryRequest struct {
	Name      string           `json:"name" binding:"required,max=200"`
	Budget    *decimal.Decimal `json:"budget"`
	SortOrder int              `json:"sort_order"`
}

type UpdateCategoryRequest struct {
	Name      *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Budget    *decimal.Decimal `json:"budget"`
	SortOrder *int             `json:"sort_order"`
}

// CategorySummary is a category with the expenses booked against it.
type CategorySummary struct {
	models.Category
	Spent     decimal.Decimal `json:"spent"`
	Committed decimal.Decimal `json:"committed"`
	Remaining decimal.Decimal `json:"remaining"`
}

func findCategory(db *gorm.DB, orgID, id string) (*models.Category, error) {
	var category models.Category
	err := db.Scopes(models.TenantScope(orgID)).First(&category, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("Category not found")
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// findCategoryInProject is 404 for a category outside the tenant and 400 for one
// that exists but belongs to another project.
func findCategoryInProject(db *gorm.DB, orgID, projectID, id string) (*models.Category, error) {
	category, err := findCategory(db, orgID, id)
	if err != nil {
		return nil, err
	}
	if category.ProjectID != projectID {
		return nil, response.NewValidation("Category does not belong to the project").
			WithField("category_id", "must belong to project_id")
	}
	return category, nil
}

func validateCategoryBudget(budget *decimal.Decimal) error {
	if budget == nil {
		return nil
	}
	if budget.IsNegative() {
		return response.NewValidation("Budget cannot be negative").WithField("budget", "must be greater than or equal to 0")
	}
	if !models.ValidMoney(*budget) {
		return response.NewValidation("Budget has too many decimal places").WithField("budget", "must have at most 2 decimal places")
	}
	return nil
}

// ListByProject returns a project's categories with expense totals, in display order
func (s *CategoryService) ListByProject(ctx context.Context, p Principal, projectID string) ([]CategorySummary, error) {
	db := s.db.WithContext(ctx)
	if _, err := findProject(db, p.OrgID, projectID); err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := db.Scopes(models.TenantScope(p.OrgID)).
		Where("project_id = ?", projectID).
		Order("sort_order ASC").Order("created_at ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		CategoryID string
		Used       decimal.Decimal
		Committed  decimal.Decimal
	}
	if err := db.Model(&models.Transaction{}).
		Select("category_id, COALESCE(SUM(paid_amount), 0) AS used, COALESCE(SUM(amount), 0) AS committed").
		Scopes(models.TenantScope(p.OrgID)).
		Where("project_id = ? AND type = ? AND category_id IS NOT NULL", projectID, models.TransactionExpense).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	spent := make(map[string]int, len(rows))
	for i, r := range rows {
		spent[r.CategoryID] = i
	}

	out := make([]CategorySummary, len(categories))
	for i, c := range categories {
		out[i] = CategorySummary{Category: c, Remaining: c.Budget}
		if j, ok := spent[c.ID]; ok {
			out[i].Spent = models.RoundMoney(rows[j].Used)
			out[i].Committed = models.RoundMoney(rows[j].Committed)
			out[i].Remaining = c.Budget.Sub(out[i].Spent)
		}
	}
	return out, nil
}

func (s *CategoryService) Create(ctx context.Context, p Principal, projectID string, req *CreateCategoryRequest) (*models.Category, error) {
	if !p.Allowed(ProjectWriters...) {
		return nil, response.NewForbidden("Only project managers can manage categories")
	}
	if err := validateCategoryBudget(req.Budget); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if _, err := findProject(db, p.OrgID, projectID); err != nil {
		return nil, err
	}

	category := models.Category{
		OrgID:     p.OrgID,
		ProjectID: projectID,
		Name:      strings.TrimSpace(req.Name),
		Budget:    decimal.Zero,
		SortOrder: req.SortOrder,
	}
	if req.Budget != nil {
		category.Budget = *req.Budget
	}
	if err := db.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, p Principal, id string, req *UpdateCategoryRequest) (*models.Category, error) {
	if !p.Allowed(ProjectWriters...) {
		return nil, response.NewForbidden("Only project managers can manage categories")
	}
	if err := validateCategoryBudget(req.Budget); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	category, err := findCategory(db, p.OrgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Budget != nil {
		updates["budget"] = *req.Budget
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if err := db.Model(category).Updates(updates).Error; err != nil {
		return nil, err
	}
	return findCategory(db, p.OrgID, id)
}
