package services

import (
	"testing"
	"time"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLogService_RecordAndList(t *testing.T) {
	db := testutil.NewDB(t)
	acme := testutil.SeedTenant(t, db, "acme")
	rival := testutil.SeedTenant(t, db, "rival")
	svc := NewSystemLogService(db)

	svc.Record(AuditEntry{Module: "projects", Action: "POST /api/v1/projects", Message: "created", OrgID: acme.Org.ID, UserID: acme.UserID(models.RolePM), Extra: map[string]int{"status": 201}})
	svc.Record(AuditEntry{Level: "error", Module: "daily-logs", Action: "PATCH /api/v1/daily-logs/1", OrgID: acme.Org.ID})
	svc.Record(AuditEntry{Module: "projects", Action: "POST /api/v1/projects", OrgID: rival.Org.ID})

	logs, total, err := svc.List(ctx, principal(acme, models.RoleAdmin), &SystemLogListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)

	logs, total, err = svc.List(ctx, principal(acme, models.RoleAdmin), &SystemLogListRequest{Module: "projects"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "info", logs[0].Level)
	assert.JSONEq(t, `{"status":201}`, logs[0].Extra)

	_, total, err = svc.List(ctx, principal(acme, models.RoleAdmin), &SystemLogListRequest{Level: "error"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSystemLogService_CleanupOldLogs(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSystemLogService(db)

	old := &models.SystemLog{Level: "info", Module: "m", Action: "a", CreatedAt: time.Now().AddDate(0, 0, -45)}
	recent := &models.SystemLog{Level: "info", Module: "m", Action: "a", CreatedAt: time.Now().AddDate(0, 0, -2)}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Create(recent).Error)

	n, err := svc.CleanupOldLogs(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "zero retention keeps everything")

	n, err = svc.CleanupOldLogs(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var remaining int64
	db.Model(&models.SystemLog{}).Count(&remaining)
	assert.EqualValues(t, 1, remaining)
}
