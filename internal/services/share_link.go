package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/utils"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/gorm"
)

const (
	shareTokenBytes   = 32
	shareLogLimit     = 50
	shareNotFoundText = "Share link not found"
)

type ShareLinkService struct {
	db       *gorm.DB
	projects *ProjectService
	cfg      config.ShareConfig
}

func NewShareLinkService(db *gorm.DB, projects *ProjectService, cfg config.ShareConfig) *ShareLinkService {
	return &ShareLinkService{db: db, projects: projects, cfg: cfg}
}

type ShareLinkListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	ProjectID string `form:"project_id"`
}

// CreateShareLinkRequest. Finance is hidden unless hide_finance is sent as false.
// expires_in_days 0 means the link never expires; omitted means the configured default.
type CreateShareLinkRequest struct {
	ProjectID           string `json:"project_id" binding:"required"`
	HideFinance         *bool  `json:"hide_finance"`
	ShowInvestorContact bool   `json:"show_investor_contact"`
	ExpiresInDays       *int   `json:"expires_in_days" binding:"omitempty,min=0,max=3650"`
}

// ShareLinkView adds the public URL to a stored link.
type ShareLinkView struct {
	models.ShareLink
	URL string `json:"url"`
}

// SharedProject is the anonymous project view. Finance and investor fields are
// pointers so they are absent, not zeroed, when the link hides them.
type SharedProject struct {
	Name          string               `json:"name"`
	Status        models.ProjectStatus `json:"status"`
	StartDate     time.Time            `json:"start_date"`
	EndDate       *time.Time           `json:"end_date"`
	Address       string               `json:"address"`
	Scale         models.ProjectScale  `json:"scale"`
	Description   string               `json:"description"`
	ThumbnailURL  string               `json:"thumbnail_url"`
	ProgressPct   float64              `json:"progress_pct"`
	Schedule      *ScheduleSummary     `json:"schedule"`
	BudgetTotal   *decimal.Decimal     `json:"budget_total,omitempty"`
	Currency      *string              `json:"currency,omitempty"`
	BudgetUsed    *decimal.Decimal     `json:"budget_used,omitempty"`
	BudgetUsedPct *float64             `json:"budget_used_pct,omitempty"`
	InvestorName  *string              `json:"investor_name,omitempty"`
	InvestorPhone *string              `json:"investor_phone,omitempty"`
}

type SharedDailyLog struct {
	ID       string             `json:"id"`
	Date     time.Time          `json:"date"`
	Notes    string             `json:"notes"`
	Media    []models.MediaItem `json:"media"`
	QCRating *int               `json:"qc_rating"`
}

type ShareView struct {
	Project   SharedProject    `json:"project"`
	DailyLogs []SharedDailyLog `json:"daily_logs"`
	ExpiresAt *time.Time       `json:"expires_at"`
}

func (s *ShareLinkService) linkURL(token string) string {
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/api/v1/share/" + token
}

func (s *ShareLinkService) Create(ctx context.Context, p Principal, req *CreateShareLinkRequest) (*ShareLinkView, error) {
	if !p.Allowed(ShareLinkManagers...) {
		return nil, response.NewForbidden("Only project managers can share projects")
	}

	db := s.db.WithContext(ctx)
	if _, err := findProject(db, p.OrgID, req.ProjectID); err != nil {
		return nil, err
	}

	token, err := utils.RandomToken(shareTokenBytes)
	if err != nil {
		return nil, err
	}

	link := models.ShareLink{
		OrgID:               p.OrgID,
		ProjectID:           req.ProjectID,
		Token:               token,
		HideFinance:         true,
		ShowInvestorContact: req.ShowInvestorContact,
		CreatedBy:           p.UserID,
	}
	if req.HideFinance != nil {
		link.HideFinance = *req.HideFinance
	}

	days := s.cfg.DefaultExpiryDays
	if req.ExpiresInDays != nil {
		days = *req.ExpiresInDays
	}
	if days > 0 {
		expires := time.Now().UTC().AddDate(0, 0, days)
		link.ExpiresAt = &expires
	}

	if err := db.Create(&link).Error; err != nil {
		return nil, err
	}
	return &ShareLinkView{ShareLink: link, URL: s.linkURL(link.Token)}, nil
}

func (s *ShareLinkService) List(ctx context.Context, p Principal, req *ShareLinkListRequest) ([]ShareLinkView, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.ShareLink{}).Scopes(models.TenantScope(p.OrgID))
	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []models.ShareLink
	if err := query.Scopes(models.Paginate(req.Page, req.Limit)).Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, 0, err
	}

	views := make([]ShareLinkView, len(links))
	for i, l := range links {
		views[i] = ShareLinkView{ShareLink: l, URL: s.linkURL(l.Token)}
	}
	return views, total, nil
}

// Revoke soft-deletes a link; its token stops resolving immediately.
func (s *ShareLinkService) Revoke(ctx context.Context, p Principal, id string) error {
	if !p.Allowed(ShareLinkManagers...) {
		return response.NewForbidden("Only project managers can revoke share links")
	}
	result := s.db.WithContext(ctx).Scopes(models.TenantScope(p.OrgID)).
		Where("id = ?", id).
		Delete(&models.ShareLink{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound(shareNotFoundText)
	}
	return nil
}

// PublicView resolves a token into the redacted project view. Unknown or
// revoked tokens are 404, expired ones 410.
func (s *ShareLinkService) PublicView(ctx context.Context, token string, now time.Time) (*ShareView, error) {
	db := s.db.WithContext(ctx)

	var link models.ShareLink
	err := db.Where("token = ?", token).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound(shareNotFoundText)
	}
	if err != nil {
		return nil, err
	}
	if link.Expired(now) {
		return nil, response.NewGone("Share link has expired")
	}

	project, err := findProject(db, link.OrgID, link.ProjectID)
	if err != nil {
		if response.IsKind(err, response.KindNotFound) {
			return nil, response.NewNotFound(shareNotFoundText)
		}
		return nil, err
	}

	views, err := s.projects.attachMetrics(db, link.OrgID, []models.Project{*project}, now)
	if err != nil {
		return nil, err
	}

	var logs []models.DailyLog
	if err := db.Scopes(models.TenantScope(link.OrgID)).
		Where("project_id = ? AND status = ?", project.ID, models.LogStatusApproved).
		Order("date DESC").Order("created_at DESC").
		Limit(shareLogLimit).
		Find(&logs).Error; err != nil {
		return nil, err
	}

	view := &ShareView{
		Project:   RedactProject(&views[0], &link),
		DailyLogs: make([]SharedDailyLog, 0, len(logs)),
		ExpiresAt: link.ExpiresAt,
	}
	for _, l := range logs {
		view.DailyLogs = append(view.DailyLogs, SharedDailyLog{
			ID:       l.ID,
			Date:     l.Date,
			Notes:    l.Notes,
			Media:    l.Media,
			QCRating: l.QCRating,
		})
	}
	return view, nil
}

// RedactProject builds the public projection of a project for link.
func RedactProject(v *ProjectView, link *models.ShareLink) SharedProject {
	out := SharedProject{
		Name:         v.Name,
		Status:       v.Status,
		StartDate:    v.StartDate,
		EndDate:      v.EndDate,
		Address:      v.Address,
		Scale:        v.Scale.Data(),
		Description:  v.Description,
		ThumbnailURL: v.ThumbnailURL,
		ProgressPct:  v.ProgressPct,
		Schedule:     v.Schedule,
	}
	if !link.HideFinance {
		total, used, currency := v.BudgetTotal, v.BudgetUsed, v.Currency
		out.BudgetTotal = &total
		out.BudgetUsed = &used
		out.Currency = &currency
		out.BudgetUsedPct = v.BudgetUsedPct
	}
	if link.ShowInvestorContact {
		name, phone := v.InvestorName, v.InvestorPhone
		out.InvestorName = &name
		out.InvestorPhone = &phone
	}
	return out
}

// SweepExpired revokes links that expired more than purgeAfterDays ago.
func (s *ShareLinkService) SweepExpired(ctx context.Context, purgeAfterDays int, now time.Time) (int64, error) {
	if purgeAfterDays < 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -purgeAfterDays)
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Delete(&models.ShareLink{})
	return result.RowsAffected, result.Error
}
