package services

import (
	"testing"
	"time"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/testutil"
	"github.com/siteflow/siteflow/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectService_Create(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewProjectService(db, NewWorkCalendar("NONE"))

	project, err := svc.Create(ctx, principal(tn, models.RolePM), &CreateProjectRequest{
		Name:        "  Riverside Villa ",
		StartDate:   "2026-02-01",
		EndDate:     ptr("2026-08-31"),
		BudgetTotal: ptr(dec("2500000000")),
		Scale:       &models.ProjectScale{Area: 320.5, Floors: 3},
		CountryCode: "vn",
	})
	require.NoError(t, err)
	assert.Equal(t, "Riverside Villa", project.Name)
	assert.Equal(t, models.ProjectStatusPlanning, project.Status)
	assert.Equal(t, "VND", project.Currency)
	assert.Equal(t, "VN", project.CountryCode)

	view, err := svc.GetByID(ctx, principal(tn, models.RoleEngineer), project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Scale.Data().Floors)
	assert.True(t, view.BudgetTotal.Equal(dec("2500000000")))
	assert.NotNil(t, view.Schedule)
}

func TestProjectService_CreateRejects(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewProjectService(db, nil)

	_, err := svc.Create(ctx, principal(tn, models.RoleEngineer), &CreateProjectRequest{Name: "x", StartDate: "2026-01-01"})
	assert.True(t, response.IsKind(err, response.KindForbidden))

	_, err = svc.Create(ctx, principal(tn, models.RolePM), &CreateProjectRequest{Name: "x", StartDate: "2026-01-01", BudgetTotal: ptr(dec("-1"))})
	assert.True(t, response.IsKind(err, response.KindValidation))

	_, err = svc.Create(ctx, principal(tn, models.RolePM), &CreateProjectRequest{Name: "x", StartDate: "2026-01-01", BudgetTotal: ptr(dec("10.005"))})
	assert.True(t, response.IsKind(err, response.KindValidation), "money columns hold cents")

	_, err = svc.Create(ctx, principal(tn, models.RolePM), &CreateProjectRequest{Name: "x", StartDate: "2026-05-01", EndDate: ptr("2026-04-01")})
	assert.True(t, response.IsKind(err, response.KindValidation))
}

func TestProjectService_Metrics(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewProjectService(db, nil)

	project := seedProject(t, db, tn, "Tower A", "1000")
	category := seedCategory(t, db, project, "Structure")
	seedTask(t, db, category, "Piles", 30, models.TaskStatusDone)
	seedTask(t, db, category, "Columns", 0, models.TaskStatusDone)
	seedTask(t, db, category, "Slabs", 9, models.TaskStatusInProgress)
	seedExpense(t, db, project, category, "600", "600")
	seedExpense(t, db, project, nil, "500", "450")
	advance := &models.Transaction{OrgID: tn.Org.ID, ProjectID: project.ID, Type: models.TransactionAdvance,
		Amount: dec("9999"), PaidAmount: dec("9999"), PaymentStatus: models.PaymentPaid, CreatedBy: "seed"}
	require.NoError(t, db.Create(advance).Error)

	view, err := svc.GetByID(ctx, principal(tn, models.RolePM), project.ID)
	require.NoError(t, err)

	// (30 + 1) / (30 + 1 + 9)
	assert.InDelta(t, 77.5, view.ProgressPct, 1e-9)
	assert.EqualValues(t, 3, view.TaskCount)
	assert.EqualValues(t, 2, view.DoneTaskCount)
	assert.True(t, view.BudgetUsed.Equal(dec("1050")), "advances are not spend, got %s", view.BudgetUsed)
	assert.True(t, view.BudgetCommitted.Equal(dec("1100")))
	require.NotNil(t, view.BudgetUsedPct)
	assert.InDelta(t, 105.0, *view.BudgetUsedPct, 1e-9)
	assert.True(t, view.OverBudget)
	assert.Nil(t, view.Schedule, "no end date means no schedule")
}

func TestProjectService_MetricsAtCentScale(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewProjectService(db, nil)

	project := seedProject(t, db, tn, "Kiosk", "0.3")
	seedExpense(t, db, project, nil, "0.1", "0.1")
	seedExpense(t, db, project, nil, "0.2", "0.2")

	view, err := svc.GetByID(ctx, principal(tn, models.RolePM), project.ID)
	require.NoError(t, err)
	assert.True(t, view.BudgetUsed.Equal(dec("0.3")), "got %s", view.BudgetUsed)
	assert.True(t, view.BudgetCommitted.Equal(dec("0.3")), "got %s", view.BudgetCommitted)
	assert.True(t, view.BudgetRemaining.IsZero(), "got %s", view.BudgetRemaining)
	require.NotNil(t, view.BudgetUsedPct)
	assert.Equal(t, 100.0, *view.BudgetUsedPct)
	assert.False(t, view.OverBudget)
}

func TestProjectService_ListSearchAndIsolation(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.SeedTenant(t, db, "acme")
	rival := testutil.SeedTenant(t, db, "rival")
	svc := NewProjectService(db, nil)

	seedProject(t, db, acme, "Harbor Bridge", "0")
	seedProject(t, db, acme, "Hillside School", "0")
	seedProject(t, db, rival, "Harbor Mall", "0")

	views, total, err := svc.List(ctx, principal(acme, models.RoleEngineer), &ProjectListRequest{Q: "HARBOR"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Equal(t, "Harbor Bridge", views[0].Name)
	assert.Zero(t, views[0].ProgressPct)
	assert.Nil(t, views[0].BudgetUsedPct, "zero budget leaves pct null")

	_, total, err = svc.List(ctx, principal(acme, models.RoleEngineer), &ProjectListRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProjectService_Update(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewProjectService(db, nil)
	project := seedProject(t, db, tn, "Tower A", "1000")

	before := project.UpdatedAt
	time.Sleep(5 * time.Millisecond)

	updated, err := svc.Update(ctx, principal(tn, models.RolePM), project.ID, &UpdateProjectRequest{})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(before), "an empty patch still bumps updated_at")
	assert.Equal(t, "Tower A", updated.Name)

	updated, err = svc.Update(ctx, principal(tn, models.RoleAdmin), project.ID, &UpdateProjectRequest{
		Name:   ptr("Tower A2"),
		Status: ptr(models.ProjectStatusOnHold),
	})
	require.NoError(t, err)
	assert.Equal(t, "Tower A2", updated.Name)
	assert.Equal(t, models.ProjectStatusOnHold, updated.Status)
	assert.True(t, updated.BudgetTotal.Equal(dec("1000")), "unspecified fields are untouched")

	_, err = svc.Update(ctx, principal(tn, models.RoleEngineer), project.ID, &UpdateProjectRequest{Name: ptr("nope")})
	assert.True(t, response.IsKind(err, response.KindForbidden))

	_, err = svc.Update(ctx, principal(tn, models.RolePM), project.ID, &UpdateProjectRequest{EndDate: ptr("2025-01-01")})
	assert.True(t, response.IsKind(err, response.KindValidation))
}

func TestProjectService_Delete(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewProjectService(db, nil)
	project := seedProject(t, db, tn, "Tower A", "1000")

	err := svc.Delete(ctx, principal(tn, models.RolePM), project.ID)
	assert.True(t, response.IsKind(err, response.KindForbidden))

	require.NoError(t, svc.Delete(ctx, principal(tn, models.RoleAdmin), project.ID))
	_, err = svc.GetByID(ctx, principal(tn, models.RoleAdmin), project.ID)
	assert.True(t, response.IsKind(err, response.KindNotFound))

	err = svc.Delete(ctx, principal(tn, models.RoleAdmin), project.ID)
	assert.True(t, response.IsKind(err, response.KindNotFound))
}

func TestCategoryService(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewCategoryService(db)
	project := seedProject(t, db, tn, "Tower A", "1000")

	pm := principal(tn, models.RolePM)
	foundation, err := svc.Create(ctx, pm, project.ID, &CreateCategoryRequest{Name: "Foundation", Budget: ptr(dec("400")), SortOrder: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, pm, project.ID, &CreateCategoryRequest{Name: "Finishing", SortOrder: 2})
	require.NoError(t, err)

	_, err = svc.Create(ctx, principal(tn, models.RoleEngineer), project.ID, &CreateCategoryRequest{Name: "x"})
	assert.True(t, response.IsKind(err, response.KindForbidden))

	seedExpense(t, db, project, foundation, "300", "120")

	summaries, err := svc.ListByProject(ctx, principal(tn, models.RoleAccountant), project.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Foundation", summaries[0].Name)
	assert.True(t, summaries[0].Spent.Equal(dec("120")))
	assert.True(t, summaries[0].Committed.Equal(dec("300")))
	assert.True(t, summaries[0].Remaining.Equal(dec("280")))
	assert.True(t, summaries[1].Spent.IsZero())

	renamed, err := svc.Update(ctx, pm, foundation.ID, &UpdateCategoryRequest{Name: ptr("Foundations")})
	require.NoError(t, err)
	assert.Equal(t, "Foundations", renamed.Name)
}

func TestTaskService(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	rival := testutil.SeedTenant(t, db, "rival")
	svc := NewTaskService(db)
	project := seedProject(t, db, tn, "Tower A", "1000")
	category := seedCategory(t, db, project, "Structure")

	pm := principal(tn, models.RolePM)
	task, err := svc.Create(ctx, pm, &CreateTaskRequest{
		ProjectID:  project.ID,
		CategoryID: category.ID,
		Name:       "Rebar",
		AssigneeID: ptr(tn.UserID(models.RoleEngineer)),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusWaiting, task.Status)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)

	_, err = svc.Create(ctx, pm, &CreateTaskRequest{
		ProjectID: project.ID, CategoryID: category.ID, Name: "x",
		AssigneeID: ptr(rival.UserID(models.RoleEngineer)),
	})
	assert.True(t, response.IsKind(err, response.KindValidation), "assignee must be in the organization")

	_, err = svc.Create(ctx, principal(tn, models.RoleEngineer), &CreateTaskRequest{ProjectID: project.ID, CategoryID: category.ID, Name: "x"})
	assert.True(t, response.IsKind(err, response.KindForbidden))

	done := models.TaskStatusDone
	updated, err := svc.Update(ctx, principal(tn, models.RoleEngineer), task.ID, &UpdateTaskRequest{Status: &done, ActualHours: ptr(7.5), AssigneeID: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, updated.Status)
	assert.Nil(t, updated.AssigneeID, "empty assignee clears it")

	_, err = svc.Update(ctx, principal(tn, models.RoleQC), task.ID, &UpdateTaskRequest{Status: &done})
	assert.True(t, response.IsKind(err, response.KindForbidden))

	tasks, total, err := svc.List(ctx, pm, &TaskListRequest{ProjectID: project.ID, Status: "done"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, tasks, 1)
}
