package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

func principal(tn *testutil.Tenant, role models.Role) Principal {
	return Principal{OrgID: tn.Org.ID, UserID: tn.UserID(role), Role: role}
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedProject(t *testing.T, db *gorm.DB, tn *testutil.Tenant, name string, budget string) *models.Project {
	t.Helper()
	p := &models.Project{
		OrgID:       tn.Org.ID,
		Name:        name,
		Status:      models.ProjectStatusInProgress,
		StartDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		BudgetTotal: dec(budget),
		Currency:    "VND",
		CreatedBy:   tn.UserID(models.RolePM),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCategory(t *testing.T, db *gorm.DB, project *models.Project, name string) *models.Category {
	t.Helper()
	c := &models.Category{
		OrgID:     project.OrgID,
		ProjectID: project.ID,
		Name:      name,
		Budget:    decimal.Zero,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedTask(t *testing.T, db *gorm.DB, category *models.Category, name string, hours float64, status models.TaskStatus) *models.Task {
	t.Helper()
	task := &models.Task{
		OrgID:          category.OrgID,
		ProjectID:      category.ProjectID,
		CategoryID:     category.ID,
		Name:           name,
		Status:         status,
		Priority:       models.TaskPriorityMedium,
		EstimatedHours: hours,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func seedExpense(t *testing.T, db *gorm.DB, project *models.Project, category *models.Category, amount, paid string) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		OrgID:         project.OrgID,
		ProjectID:     project.ID,
		Type:          models.TransactionExpense,
		Amount:        dec(amount),
		PaidAmount:    dec(paid),
		PaymentStatus: DerivePaymentStatus(dec(amount), dec(paid)),
		CreatedBy:     "seed",
	}
	if category != nil {
		tx.CategoryID = &category.ID
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}

func seedLog(t *testing.T, db *gorm.DB, category *models.Category, reporterID string, status models.LogStatus, date string) *models.DailyLog {
	t.Helper()
	d, err := ParseDate(date)
	require.NoError(t, err)
	log := &models.DailyLog{
		OrgID:      category.OrgID,
		ProjectID:  category.ProjectID,
		CategoryID: category.ID,
		Date:       d,
		ReporterID: reporterID,
		Media:      []models.MediaItem{{URL: "https://cdn.example.com/a.jpg", Type: models.MediaImage}},
		Status:     status,
	}
	require.NoError(t, db.Create(log).Error)
	return log
}
