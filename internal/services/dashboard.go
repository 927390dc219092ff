package services

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siteflow/siteflow/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db       *gorm.DB
	calendar *WorkCalendar
}

func NewDashboardService(db *gorm.DB, calendar *WorkCalendar) *DashboardService {
	return &DashboardService{db: db, calendar: calendar}
}

type DashboardStats struct {
	TotalProjects       int64                          `json:"total_projects"`
	ProjectsByStatus    map[models.ProjectStatus]int64 `json:"projects_by_status"`
	AverageProgressPct  float64                        `json:"average_progress_pct"`
	TotalBudget         decimal.Decimal                `json:"total_budget"`
	UsedBudget          decimal.Decimal                `json:"used_budget"`
	OverBudgetCount     int64                          `json:"over_budget_count"`
	BehindScheduleCount int64                          `json:"behind_schedule_count"`
	DailyLogsByStatus   map[models.LogStatus]int64     `json:"daily_logs_by_status"`
	PendingReviewCount  int64                          `json:"pending_review_count"`
}

type statusCount struct {
	Status string
	Count  int64
}

// GetStats computes the tenant-wide KPIs shown on the dashboard.
func (s *DashboardService) GetStats(ctx context.Context, p Principal, now time.Time) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{
		ProjectsByStatus:  make(map[models.ProjectStatus]int64, len(models.AllProjectStatuses)),
		DailyLogsByStatus: make(map[models.LogStatus]int64, 4),
	}
	for _, st := range models.AllProjectStatuses {
		stats.ProjectsByStatus[st] = 0
	}
	for _, st := range []models.LogStatus{models.LogStatusDraft, models.LogStatusSubmitted, models.LogStatusApproved, models.LogStatusDeclined} {
		stats.DailyLogsByStatus[st] = 0
	}

	var projectRows []statusCount
	if err := db.Model(&models.Project{}).
		Select("status, COUNT(*) AS count").
		Scopes(models.TenantScope(p.OrgID)).
		Group("status").
		Scan(&projectRows).Error; err != nil {
		return nil, err
	}
	for _, r := range projectRows {
		stats.ProjectsByStatus[models.ProjectStatus(r.Status)] = r.Count
		stats.TotalProjects += r.Count
	}

	var logRows []statusCount
	if err := db.Model(&models.DailyLog{}).
		Select("status, COUNT(*) AS count").
		Scopes(models.TenantScope(p.OrgID)).
		Group("status").
		Scan(&logRows).Error; err != nil {
		return nil, err
	}
	for _, r := range logRows {
		stats.DailyLogsByStatus[models.LogStatus(r.Status)] = r.Count
	}
	stats.PendingReviewCount = stats.DailyLogsByStatus[models.LogStatusSubmitted]

	var totals struct {
		Budget decimal.Decimal
	}
	if err := db.Model(&models.Project{}).
		Select("COALESCE(SUM(budget_total), 0) AS budget").
		Scopes(models.TenantScope(p.OrgID)).
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalBudget = models.RoundMoney(totals.Budget)

	var used struct {
		Used decimal.Decimal
	}
	if err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(transactions.paid_amount), 0) AS used").
		Joins("JOIN projects ON projects.id = transactions.project_id AND projects.deleted_at IS NULL").
		Where("transactions.org_id = ? AND transactions.type = ?", p.OrgID, models.TransactionExpense).
		Scan(&used).Error; err != nil {
		return nil, err
	}
	stats.UsedBudget = models.RoundMoney(used.Used)

	if err := s.perProjectKPIs(db, p.OrgID, now, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// perProjectKPIs folds the per-project progress and spend aggregates into
// the average progress, over-budget and behind-schedule figures.
func (s *DashboardService) perProjectKPIs(db *gorm.DB, orgID string, now time.Time, stats *DashboardStats) error {
	var projects []models.Project
	if err := db.Select("id", "budget_total", "start_date", "end_date", "country_code").
		Scopes(models.TenantScope(orgID)).
		Find(&projects).Error; err != nil {
		return err
	}
	if len(projects) == 0 {
		return nil
	}

	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	progress, err := aggregateProgress(db, orgID, ids)
	if err != nil {
		return err
	}
	spend, err := aggregateSpend(db, orgID, ids)
	if err != nil {
		return err
	}

	var progressSum float64
	for _, project := range projects {
		pr := progress[project.ID]
		pct := ProgressPct(pr.DoneWeight, pr.TotalWeight)
		progressSum += pct

		sp := spend[project.ID]
		if ComputeBudget(project.BudgetTotal, sp.Used, sp.Committed).OverBudget {
			stats.OverBudgetCount++
		}
		if s.calendar == nil {
			continue
		}
		if sched := s.calendar.Schedule(project.StartDate, project.EndDate, project.CountryCode, pct, now); sched != nil && sched.BehindSchedule {
			stats.BehindScheduleCount++
		}
	}
	stats.AverageProgressPct = math.Round(progressSum/float64(len(projects))*100) / 100
	return nil
}
