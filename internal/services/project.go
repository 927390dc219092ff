package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectService struct {
	db       *gorm.DB
	calendar *WorkCalendar
}

func NewProjectService(db *gorm.DB, calendar *WorkCalendar) *ProjectService {
	return &ProjectService{db: db, calendar: calendar}
}

type ProjectListRequest struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Q      string `form:"q"`
	Status string `form:"status" binding:"omitempty,oneof=planning in_progress on_hold completed"`
}

type CreateProjectRequest struct {
	Name          string               `json:"name" binding:"required,max=200"`
	Status        models.ProjectStatus `json:"status" binding:"omitempty,oneof=planning in_progress on_hold completed"`
	StartDate     string               `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate       *string              `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	BudgetTotal   *decimal.Decimal     `json:"budget_total"`
	Currency      string               `json:"currency" binding:"omitempty,len=3"`
	Address       string               `json:"address" binding:"max=500"`
	Scale         *models.ProjectScale `json:"scale"`
	InvestorName  string               `json:"investor_name" binding:"max=200"`
	InvestorPhone string               `json:"investor_phone" binding:"max=50"`
	Description   string               `json:"description"`
	ThumbnailURL  string               `json:"thumbnail_url" binding:"omitempty,url"`
	CountryCode   string               `json:"country_code" binding:"max=8"`
}

type UpdateProjectRequest struct {
	Name          *string               `json:"name" binding:"omitempty,min=1,max=200"`
	Status        *models.ProjectStatus `json:"status" binding:"omitempty,oneof=planning in_progress on_hold completed"`
	StartDate     *string               `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate       *string               `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	BudgetTotal   *decimal.Decimal      `json:"budget_total"`
	Currency      *string               `json:"currency" binding:"omitempty,len=3"`
	Address       *string               `json:"address" binding:"omitempty,max=500"`
	Scale         *models.ProjectScale  `json:"scale"`
	InvestorName  *string               `json:"investor_name" binding:"omitempty,max=200"`
	InvestorPhone *string               `json:"investor_phone" binding:"omitempty,max=50"`
	Description   *string               `json:"description"`
	ThumbnailURL  *string               `json:"thumbnail_url" binding:"omitempty,url"`
	CountryCode   *string               `json:"country_code" binding:"omitempty,max=8"`
}

// ProjectMetrics are the derived fields attached to every project response.
type ProjectMetrics struct {
	ProgressPct   float64 `json:"progress_pct"`
	TaskCount     int64   `json:"task_count"`
	DoneTaskCount int64   `json:"done_task_count"`
	BudgetFigures
	Schedule *ScheduleSummary `json:"schedule"`
}

// ProjectView is a project together with its metrics.
type ProjectView struct {
	models.Project
	ProjectMetrics
}

func findProject(db *gorm.DB, orgID, id string) (*models.Project, error) {
	var project models.Project
	err := db.Scopes(models.TenantScope(orgID)).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("Project not found")
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func validateBudget(total *decimal.Decimal) error {
	if total == nil {
		return nil
	}
	if total.IsNegative() {
		return response.NewValidation("Budget cannot be negative").WithField("budget_total", "must be greater than or equal to 0")
	}
	if !models.ValidMoney(*total) {
		return response.NewValidation("Budget has too many decimal places").WithField("budget_total", "must have at most 2 decimal places")
	}
	return nil
}

func checkDateRange(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return response.NewValidation("End date is before start date").WithField("end_date", "must not be before start_date")
	}
	return nil
}

// List returns paginated projects with metrics attached
func (s *ProjectService) List(ctx context.Context, p Principal, req *ProjectListRequest) ([]ProjectView, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	db := s.db.WithContext(ctx)
	query := db.Model(&models.Project{}).Scopes(models.TenantScope(p.OrgID))
	if q := strings.TrimSpace(req.Q); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	if err := query.Scopes(models.Paginate(req.Page, req.Limit)).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	views, err := s.attachMetrics(db, p.OrgID, projects, time.Now().UTC())
	return views, total, err
}

// GetByID returns one project with metrics and schedule
func (s *ProjectService) GetByID(ctx context.Context, p Principal, id string) (*ProjectView, error) {
	db := s.db.WithContext(ctx)
	project, err := findProject(db, p.OrgID, id)
	if err != nil {
		return nil, err
	}
	views, err := s.attachMetrics(db, p.OrgID, []models.Project{*project}, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *ProjectService) Create(ctx context.Context, p Principal, req *CreateProjectRequest) (*models.Project, error) {
	if !p.Allowed(ProjectWriters...) {
		return nil, response.NewForbidden("Only project managers can create projects")
	}
	if err := validateBudget(req.BudgetTotal); err != nil {
		return nil, err
	}

	start, err := ParseDate(req.StartDate)
	if err != nil {
		return nil, response.NewValidation("Invalid start_date").WithField("start_date", "must be a date in format 2006-01-02")
	}
	var end *time.Time
	if req.EndDate != nil {
		e, err := ParseDate(*req.EndDate)
		if err != nil {
			return nil, response.NewValidation("Invalid end_date").WithField("end_date", "must be a date in format 2006-01-02")
		}
		end = &e
	}
	if err := checkDateRange(start, end); err != nil {
		return nil, err
	}

	project := models.Project{
		OrgID:         p.OrgID,
		Name:          strings.TrimSpace(req.Name),
		Status:        req.Status,
		StartDate:     start,
		EndDate:       end,
		BudgetTotal:   decimal.Zero,
		Currency:      strings.ToUpper(req.Currency),
		Address:       req.Address,
		InvestorName:  req.InvestorName,
		InvestorPhone: req.InvestorPhone,
		Description:   req.Description,
		ThumbnailURL:  req.ThumbnailURL,
		CountryCode:   strings.ToUpper(req.CountryCode),
		CreatedBy:     p.UserID,
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusPlanning
	}
	if project.Currency == "" {
		project.Currency = "VND"
	}
	if req.BudgetTotal != nil {
		project.BudgetTotal = *req.BudgetTotal
	}
	if req.Scale != nil {
		project.Scale = datatypes.NewJSONType(*req.Scale)
	}

	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update merges the provided fields; updated_at moves even for an empty patch.
func (s *ProjectService) Update(ctx context.Context, p Principal, id string, req *UpdateProjectRequest) (*models.Project, error) {
	if !p.Allowed(ProjectWriters...) {
		return nil, response.NewForbidden("Only project managers can edit projects")
	}
	if err := validateBudget(req.BudgetTotal); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	project, err := findProject(db, p.OrgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	start, end := project.StartDate, project.EndDate
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.StartDate != nil {
		if start, err = ParseDate(*req.StartDate); err != nil {
			return nil, response.NewValidation("Invalid start_date").WithField("start_date", "must be a date in format 2006-01-02")
		}
		updates["start_date"] = start
	}
	if req.EndDate != nil {
		e, err := ParseDate(*req.EndDate)
		if err != nil {
			return nil, response.NewValidation("Invalid end_date").WithField("end_date", "must be a date in format 2006-01-02")
		}
		end = &e
		updates["end_date"] = e
	}
	if err := checkDateRange(start, end); err != nil {
		return nil, err
	}
	if req.BudgetTotal != nil {
		updates["budget_total"] = *req.BudgetTotal
	}
	if req.Currency != nil {
		updates["currency"] = strings.ToUpper(*req.Currency)
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Scale != nil {
		updates["scale"] = datatypes.NewJSONType(*req.Scale)
	}
	if req.InvestorName != nil {
		updates["investor_name"] = *req.InvestorName
	}
	if req.InvestorPhone != nil {
		updates["investor_phone"] = *req.InvestorPhone
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ThumbnailURL != nil {
		updates["thumbnail_url"] = *req.ThumbnailURL
	}
	if req.CountryCode != nil {
		updates["country_code"] = strings.ToUpper(*req.CountryCode)
	}

	if err := db.Model(project).Updates(updates).Error; err != nil {
		return nil, err
	}
	return findProject(db, p.OrgID, id)
}

// Delete soft-deletes a project
func (s *ProjectService) Delete(ctx context.Context, p Principal, id string) error {
	if !p.Allowed(Admins...) {
		return response.NewForbidden("Only admins can delete projects")
	}
	result := s.db.WithContext(ctx).Scopes(models.TenantScope(p.OrgID)).
		Where("id = ?", id).
		Delete(&models.Project{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("Project not found")
	}
	return nil
}

func (s *ProjectService) attachMetrics(db *gorm.DB, orgID string, projects []models.Project, now time.Time) ([]ProjectView, error) {
	views := make([]ProjectView, len(projects))
	if len(projects) == 0 {
		return views, nil
	}

	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}

	progress, err := aggregateProgress(db, orgID, ids)
	if err != nil {
		return nil, err
	}
	spend, err := aggregateSpend(db, orgID, ids)
	if err != nil {
		return nil, err
	}

	for i, project := range projects {
		views[i] = ProjectView{
			Project:        project,
			ProjectMetrics: s.metricsFor(&project, progress[project.ID], spend[project.ID], now),
		}
	}
	return views, nil
}

func (s *ProjectService) metricsFor(project *models.Project, progress progressRow, spend spendRow, now time.Time) ProjectMetrics {
	m := ProjectMetrics{
		ProgressPct:   ProgressPct(progress.DoneWeight, progress.TotalWeight),
		TaskCount:     progress.TaskCount,
		DoneTaskCount: progress.DoneCount,
		BudgetFigures: ComputeBudget(project.BudgetTotal, spend.Used, spend.Committed),
	}
	if s.calendar != nil {
		m.Schedule = s.calendar.Schedule(project.StartDate, project.EndDate, project.CountryCode, m.ProgressPct, now)
	}
	return m
}

// Task weight as SQL, mirroring TaskWeight.
const taskWeightSQL = "CASE WHEN estimated_hours > 0 THEN estimated_hours ELSE 1 END"

type progressRow struct {
	ProjectID   string
	TotalWeight float64
	DoneWeight  float64
	TaskCount   int64
	DoneCount   int64
}

// aggregateProgress sums task weights per project in the database.
func aggregateProgress(db *gorm.DB, orgID string, projectIDs []string) (map[string]progressRow, error) {
	var rows []progressRow
	err := db.Model(&models.Task{}).
		Select(fmt.Sprintf(
			"project_id, COALESCE(SUM(%[1]s), 0) AS total_weight, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN %[1]s ELSE 0 END), 0) AS done_weight, "+
				"COUNT(*) AS task_count, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS done_count", taskWeightSQL),
			models.TaskStatusDone, models.TaskStatusDone).
		Scopes(models.TenantScope(orgID)).
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]progressRow, len(rows))
	for _, r := range rows {
		out[r.ProjectID] = r
	}
	return out, nil
}

type spendRow struct {
	ProjectID string
	Used      decimal.Decimal
	Committed decimal.Decimal
}

// aggregateSpend sums expense transactions per project in the database.
func aggregateSpend(db *gorm.DB, orgID string, projectIDs []string) (map[string]spendRow, error) {
	var rows []spendRow
	err := db.Model(&models.Transaction{}).
		Select("project_id, COALESCE(SUM(paid_amount), 0) AS used, COALESCE(SUM(amount), 0) AS committed").
		Scopes(models.TenantScope(orgID)).
		Where("type = ? AND project_id IN ?", models.TransactionExpense, projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]spendRow, len(rows))
	for _, r := range rows {
		r.Used = models.RoundMoney(r.Used)
		r.Committed = models.RoundMoney(r.Committed)
		out[r.ProjectID] = r
	}
	return out, nil
}
