package services

import (
	"sync"
	"testing"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/testutil"
	"github.com/siteflow/siteflow/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type dailyLogFixture struct {
	db       *gorm.DB
	tenant   *testutil.Tenant
	project  *models.Project
	category *models.Category
	svc      *DailyLogService
	hub      *SSEHub
}

func newDailyLogFixture(t *testing.T) *dailyLogFixture {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	project := seedProject(t, db, tn, "Tower A", "1000000")
	category := seedCategory(t, db, project, "Foundation")

	hub := NewSSEHub()
	queue := NewSyncQueue()
	queue.SetProcessor(NewActivityService(db, hub).Process)

	return &dailyLogFixture{
		db:       db,
		tenant:   tn,
		project:  project,
		category: category,
		svc:      NewDailyLogService(db, queue),
		hub:      hub,
	}
}

func (f *dailyLogFixture) createRequest() *CreateDailyLogRequest {
	return &CreateDailyLogRequest{
		ProjectID:  f.project.ID,
		CategoryID: f.category.ID,
		Date:       "2026-03-02",
		Notes:      "poured footing F3",
		Media:      []models.MediaItem{{URL: "https://cdn.example.com/f3.jpg"}},
	}
}

func TestDailyLogService_Create(t *testing.T) {
	f := newDailyLogFixture(t)
	task := seedTask(t, f.db, f.category, "Footings", 8, models.TaskStatusInProgress)

	req := f.createRequest()
	req.Tasks = []DailyLogTaskInput{{TaskID: task.ID, ProgressPct: 40, Hours: 6}}

	log, err := f.svc.Create(ctx, principal(f.tenant, models.RoleEngineer), req)
	require.NoError(t, err)
	assert.Equal(t, models.LogStatusDraft, log.Status)
	assert.Equal(t, f.tenant.UserID(models.RoleEngineer), log.ReporterID)
	assert.Equal(t, models.MediaImage, log.Media[0].Type, "media type defaults to image")
	require.Len(t, log.Tasks, 1)

	stored, err := f.svc.GetByID(ctx, principal(f.tenant, models.RolePM), log.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", stored.Date.Format(dateLayout))
	require.Len(t, stored.Tasks, 1)
	assert.Equal(t, task.ID, stored.Tasks[0].TaskID)
}

func TestDailyLogService_CreateValidation(t *testing.T) {
	f := newDailyLogFixture(t)
	engineer := principal(f.tenant, models.RoleEngineer)
	other := seedProject(t, f.db, f.tenant, "Tower B", "0")
	otherCategory := seedCategory(t, f.db, other, "Roof")
	otherTask := seedTask(t, f.db, otherCategory, "Roofing", 0, models.TaskStatusWaiting)
	task := seedTask(t, f.db, f.category, "Rebar", 0, models.TaskStatusWaiting)

	tests := []struct {
		name   string
		mutate func(*CreateDailyLogRequest)
		kind   response.Kind
	}{
		{"no media", func(r *CreateDailyLogRequest) { r.Media = nil }, response.KindValidation},
		{"blank media url", func(r *CreateDailyLogRequest) { r.Media = []models.MediaItem{{URL: " "}} }, response.KindValidation},
		{"bad media type", func(r *CreateDailyLogRequest) {
			r.Media = []models.MediaItem{{URL: "https://x/y", Type: "audio"}}
		}, response.KindValidation},
		{"bad date", func(r *CreateDailyLogRequest) { r.Date = "02/03/2026" }, response.KindValidation},
		{"unknown project", func(r *CreateDailyLogRequest) { r.ProjectID = "missing" }, response.KindNotFound},
		{"category of another project", func(r *CreateDailyLogRequest) { r.CategoryID = otherCategory.ID }, response.KindValidation},
		{"task of another project", func(r *CreateDailyLogRequest) {
			r.Tasks = []DailyLogTaskInput{{TaskID: otherTask.ID}}
		}, response.KindValidation},
		{"duplicate task", func(r *CreateDailyLogRequest) {
			r.Tasks = []DailyLogTaskInput{{TaskID: task.ID}, {TaskID: task.ID}}
		}, response.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.createRequest()
			tt.mutate(req)
			_, err := f.svc.Create(ctx, engineer, req)
			assert.True(t, response.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestDailyLogService_CreateRequiresAuthorRole(t *testing.T) {
	f := newDailyLogFixture(t)
	for _, role := range []models.Role{models.RolePM, models.RoleQC, models.RoleAccountant, models.RoleSupervisor} {
		_, err := f.svc.Create(ctx, principal(f.tenant, role), f.createRequest())
		assert.True(t, response.IsKind(err, response.KindForbidden), "%s must not create logs", role)
	}
}

func TestDailyLogService_TenantIsolation(t *testing.T) {
	f := newDailyLogFixture(t)
	log := seedLog(t, f.db, f.category, f.tenant.UserID(models.RoleEngineer), models.LogStatusSubmitted, "2026-03-02")

	intruder := testutil.SeedTenant(t, f.db, "rival")
	_, err := f.svc.GetByID(ctx, principal(intruder, models.RoleAdmin), log.ID)
	assert.True(t, response.IsKind(err, response.KindNotFound))

	_, err = f.svc.Transition(ctx, principal(intruder, models.RoleAdmin), log.ID, &TransitionRequest{Action: "approve", Comment: "ok"})
	assert.True(t, response.IsKind(err, response.KindNotFound))

	logs, total, err := f.svc.List(ctx, principal(intruder, models.RoleAdmin), &DailyLogListRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, logs)
}

func TestDailyLogService_WorkflowScenario(t *testing.T) {
	f := newDailyLogFixture(t)
	engineer := principal(f.tenant, models.RoleEngineer)
	updates := f.hub.Subscribe("watcher", f.tenant.Org.ID)
	defer f.hub.Unsubscribe("watcher")

	log, err := f.svc.Create(ctx, engineer, f.createRequest())
	require.NoError(t, err)

	log, err = f.svc.Transition(ctx, engineer, log.ID, &TransitionRequest{Action: "submit"})
	require.NoError(t, err)
	assert.Equal(t, models.LogStatusSubmitted, log.Status)

	_, err = f.svc.Transition(ctx, principal(f.tenant, models.RoleQC), log.ID, &TransitionRequest{Action: "qc", QCRating: ptr(5)})
	assert.True(t, response.IsKind(err, response.KindForbidden), "qc cannot review a submitted log")

	supervisor := principal(f.tenant, models.RoleSupervisor)
	log, err = f.svc.Transition(ctx, supervisor, log.ID, &TransitionRequest{Action: "approve", Comment: "Good work"})
	require.NoError(t, err)
	assert.Equal(t, models.LogStatusApproved, log.Status)
	require.NotNil(t, log.ReviewComment)
	assert.Equal(t, "Good work", *log.ReviewComment)
	require.NotNil(t, log.ReviewedBy)
	assert.Equal(t, supervisor.UserID, *log.ReviewedBy)
	assert.NotNil(t, log.ReviewedAt)

	log, err = f.svc.Transition(ctx, principal(f.tenant, models.RoleQC), log.ID, &TransitionRequest{Action: "qc", QCRating: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, models.LogStatusApproved, log.Status)
	require.NotNil(t, log.QCRating)
	assert.Equal(t, 4, *log.QCRating)
	assert.Equal(t, supervisor.UserID, *log.ReviewedBy, "qc keeps the reviewer")

	_, err = f.svc.Transition(ctx, supervisor, log.ID, &TransitionRequest{Action: "approve", Comment: "again"})
	assert.True(t, response.IsKind(err, response.KindValidation))

	activities, total, err := NewActivityService(f.db, nil).List(ctx, engineer, &ActivityListRequest{DailyLogID: log.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, activities, 3)
	assert.Len(t, updates, 3, "each applied transition is pushed to subscribers")

	var rated *models.Activity
	for i := range activities {
		if activities[i].Action == string(ActionQC) {
			rated = &activities[i]
		}
	}
	require.NotNil(t, rated)
	require.NotNil(t, rated.QCRating, "the feed carries the qc rating")
	assert.Equal(t, 4, *rated.QCRating)
}

func TestDailyLogService_DeclineRequiresComment(t *testing.T) {
	f := newDailyLogFixture(t)
	log := seedLog(t, f.db, f.category, f.tenant.UserID(models.RoleEngineer), models.LogStatusSubmitted, "2026-03-02")
	pm := principal(f.tenant, models.RolePM)

	_, err := f.svc.Transition(ctx, pm, log.ID, &TransitionRequest{Action: "decline"})
	require.True(t, response.IsKind(err, response.KindValidation))

	stored, err := f.svc.GetByID(ctx, pm, log.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LogStatusSubmitted, stored.Status, "a rejected transition changes nothing")

	declined, err := f.svc.Transition(ctx, pm, log.ID, &TransitionRequest{Action: "decline", Comment: "blurry photos"})
	require.NoError(t, err)
	assert.Equal(t, models.LogStatusDeclined, declined.Status)
}

func TestDailyLogService_ConcurrentReviewConflict(t *testing.T) {
	f := newDailyLogFixture(t)
	log := seedLog(t, f.db, f.category, f.tenant.UserID(models.RoleEngineer), models.LogStatusSubmitted, "2026-03-02")

	// Another reviewer declines the log right after this request has read it.
	var once sync.Once
	err := f.db.Callback().Query().After("gorm:after_query").Register("test:concurrent_decline", func(tx *gorm.DB) {
		if tx.Statement.Table != "daily_logs" {
			return
		}
		once.Do(func() {
			tx.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE daily_logs SET status = ? WHERE id = ?", models.LogStatusDeclined, log.ID)
		})
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, principal(f.tenant, models.RolePM), log.ID, &TransitionRequest{Action: "approve", Comment: "ok"})
	assert.True(t, response.IsKind(err, response.KindConflict), "got %v", err)

	var stored models.DailyLog
	require.NoError(t, f.db.First(&stored, "id = ?", log.ID).Error)
	assert.Equal(t, models.LogStatusDeclined, stored.Status)
	assert.Nil(t, stored.ReviewComment)
}

func TestDailyLogService_Delete(t *testing.T) {
	f := newDailyLogFixture(t)
	reporter := principal(f.tenant, models.RoleEngineer)
	draft := seedLog(t, f.db, f.category, reporter.UserID, models.LogStatusDraft, "2026-03-02")
	submitted := seedLog(t, f.db, f.category, reporter.UserID, models.LogStatusSubmitted, "2026-03-03")

	err := f.svc.Delete(ctx, principal(f.tenant, models.RolePM), draft.ID)
	assert.True(t, response.IsKind(err, response.KindForbidden))

	err = f.svc.Delete(ctx, reporter, submitted.ID)
	assert.True(t, response.IsKind(err, response.KindValidation))

	require.NoError(t, f.svc.Delete(ctx, reporter, draft.ID))
	_, err = f.svc.GetByID(ctx, reporter, draft.ID)
	assert.True(t, response.IsKind(err, response.KindNotFound))
}

func TestDailyLogService_ListFilters(t *testing.T) {
	f := newDailyLogFixture(t)
	reporter := f.tenant.UserID(models.RoleEngineer)
	seedLog(t, f.db, f.category, reporter, models.LogStatusDraft, "2026-03-01")
	seedLog(t, f.db, f.category, reporter, models.LogStatusApproved, "2026-03-02")
	seedLog(t, f.db, f.category, reporter, models.LogStatusApproved, "2026-03-05")

	p := principal(f.tenant, models.RolePM)
	logs, total, err := f.svc.List(ctx, p, &DailyLogListRequest{Status: "APPROVED"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "2026-03-05", logs[0].Date.Format(dateLayout), "newest first")

	logs, total, err = f.svc.List(ctx, p, &DailyLogListRequest{DateFrom: "2026-03-02", DateTo: "2026-03-04"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, logs, 1)

	logs, _, err = f.svc.List(ctx, p, &DailyLogListRequest{Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
