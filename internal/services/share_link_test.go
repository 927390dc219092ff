package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/testutil"
	"github.com/siteflow/siteflow/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newShareFixture(t *testing.T) (*gorm.DB, *testutil.Tenant, *models.Project, *ShareLinkService) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	project := seedProject(t, db, tn, "Tower A", "1000")
	require.NoError(t, db.Model(project).Updates(map[string]interface{}{
		"investor_name":  "Nguyen Van A",
		"investor_phone": "+84 90 000 0000",
	}).Error)

	svc := NewShareLinkService(db, NewProjectService(db, nil), config.ShareConfig{
		BaseURL:           "https://siteflow.example.com/",
		DefaultExpiryDays: 30,
		PurgeAfterDays:    90,
	})
	return db, tn, project, svc
}

func TestShareLinkService_Create(t *testing.T) {
	_, tn, project, svc := newShareFixture(t)

	link, err := svc.Create(ctx, principal(tn, models.RolePM), &CreateShareLinkRequest{ProjectID: project.ID})
	require.NoError(t, err)
	assert.Len(t, link.Token, 64, "32 random bytes hex encoded")
	assert.True(t, link.HideFinance, "finance is hidden by default")
	assert.False(t, link.ShowInvestorContact)
	require.NotNil(t, link.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *link.ExpiresAt, time.Minute)
	assert.Equal(t, "https://siteflow.example.com/api/v1/share/"+link.Token, link.URL)

	forever, err := svc.Create(ctx, principal(tn, models.RoleAdmin), &CreateShareLinkRequest{
		ProjectID:     project.ID,
		HideFinance:   ptr(false),
		ExpiresInDays: ptr(0),
	})
	require.NoError(t, err)
	assert.False(t, forever.HideFinance)
	assert.Nil(t, forever.ExpiresAt)
	assert.NotEqual(t, link.Token, forever.Token)

	_, err = svc.Create(ctx, principal(tn, models.RoleEngineer), &CreateShareLinkRequest{ProjectID: project.ID})
	assert.True(t, response.IsKind(err, response.KindForbidden))
}

func TestShareLinkService_PublicViewRedaction(t *testing.T) {
	db, tn, project, svc := newShareFixture(t)
	pm := principal(tn, models.RolePM)
	category := seedCategory(t, db, project, "Structure")
	seedExpense(t, db, project, category, "400", "250")
	reporter := tn.UserID(models.RoleEngineer)
	seedLog(t, db, category, reporter, models.LogStatusApproved, "2026-03-02")
	seedLog(t, db, category, reporter, models.LogStatusSubmitted, "2026-03-03")
	seedLog(t, db, category, reporter, models.LogStatusDraft, "2026-03-04")

	hidden, err := svc.Create(ctx, pm, &CreateShareLinkRequest{ProjectID: project.ID})
	require.NoError(t, err)

	view, err := svc.PublicView(ctx, hidden.Token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Tower A", view.Project.Name)
	assert.Nil(t, view.Project.BudgetTotal)
	assert.Nil(t, view.Project.BudgetUsed)
	assert.Nil(t, view.Project.InvestorName)
	require.Len(t, view.DailyLogs, 1, "only approved logs are public")

	body, err := json.Marshal(view)
	require.NoError(t, err)
	for _, key := range []string{"budget_total", "budget_used", "currency", "investor_name", "investor_phone"} {
		assert.NotContains(t, string(body), `"`+key+`"`)
	}

	open, err := svc.Create(ctx, pm, &CreateShareLinkRequest{ProjectID: project.ID, HideFinance: ptr(false), ShowInvestorContact: true})
	require.NoError(t, err)

	view, err = svc.PublicView(ctx, open.Token, time.Now())
	require.NoError(t, err)
	require.NotNil(t, view.Project.BudgetUsed)
	assert.True(t, view.Project.BudgetUsed.Equal(dec("250")))
	require.NotNil(t, view.Project.BudgetUsedPct)
	assert.InDelta(t, 25.0, *view.Project.BudgetUsedPct, 1e-9)
	require.NotNil(t, view.Project.InvestorPhone)
	assert.Equal(t, "+84 90 000 0000", *view.Project.InvestorPhone)
}

func TestShareLinkService_PublicViewErrors(t *testing.T) {
	db, tn, project, svc := newShareFixture(t)
	pm := principal(tn, models.RolePM)

	_, err := svc.PublicView(ctx, strings.Repeat("0", 64), time.Now())
	assert.True(t, response.IsKind(err, response.KindNotFound))

	link, err := svc.Create(ctx, pm, &CreateShareLinkRequest{ProjectID: project.ID, ExpiresInDays: ptr(1)})
	require.NoError(t, err)

	_, err = svc.PublicView(ctx, link.Token, time.Now().AddDate(0, 0, 2))
	assert.True(t, response.IsKind(err, response.KindGone))

	require.NoError(t, svc.Revoke(ctx, pm, link.ID))
	_, err = svc.PublicView(ctx, link.Token, time.Now())
	assert.True(t, response.IsKind(err, response.KindNotFound), "revoked links are gone for good")

	other, err := svc.Create(ctx, pm, &CreateShareLinkRequest{ProjectID: project.ID})
	require.NoError(t, err)
	require.NoError(t, db.Delete(project).Error)
	_, err = svc.PublicView(ctx, other.Token, time.Now())
	assert.True(t, response.IsKind(err, response.KindNotFound))
}

func TestShareLinkService_ListAndRevokeIsolation(t *testing.T) {
	db, tn, project, svc := newShareFixture(t)
	rival := testutil.SeedTenant(t, db, "rival")

	link, err := svc.Create(ctx, principal(tn, models.RolePM), &CreateShareLinkRequest{ProjectID: project.ID})
	require.NoError(t, err)

	err = svc.Revoke(ctx, principal(rival, models.RoleAdmin), link.ID)
	assert.True(t, response.IsKind(err, response.KindNotFound))

	links, total, err := svc.List(ctx, principal(tn, models.RoleEngineer), &ShareLinkListRequest{ProjectID: project.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, link.URL, links[0].URL)
}

func TestShareLinkService_SweepExpired(t *testing.T) {
	_, tn, project, svc := newShareFixture(t)
	pm := principal(tn, models.RolePM)

	stale, err := svc.Create(ctx, pm, &CreateShareLinkRequest{ProjectID: project.ID, ExpiresInDays: ptr(1)})
	require.NoError(t, err)
	fresh, err := svc.Create(ctx, pm, &CreateShareLinkRequest{ProjectID: project.ID, ExpiresInDays: ptr(200)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, pm, &CreateShareLinkRequest{ProjectID: project.ID, ExpiresInDays: ptr(0)})
	require.NoError(t, err)

	n, err := svc.SweepExpired(ctx, 90, time.Now().AddDate(0, 0, 100))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.PublicView(ctx, stale.Token, time.Now())
	assert.True(t, response.IsKind(err, response.KindNotFound))
	_, err = svc.PublicView(ctx, fresh.Token, time.Now())
	assert.NoError(t, err)
}
