package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/siteflow/siteflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityService struct {
	db  *gorm.DB
	hub *SSEHub
}

func NewActivityService(db *gorm.DB, hub *SSEHub) *ActivityService {
	return &ActivityService{db: db, hub: hub}
}

type ActivityListRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	ProjectID  string `form:"project_id"`
	DailyLogID string `form:"daily_log_id"`
}

// Process is the EventProcessor for transition events: it stores the activity
// row and pushes it to live subscribers.
func (s *ActivityService) Process(ctx context.Context, ev *TransitionEvent) error {
	activity := models.Activity{
		// Derived from the event so a retried delivery does not duplicate the row.
		ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(ev.DailyLogID+"|"+string(ev.Action)+"|"+ev.OccurredAt.UTC().String())).String(),
		OrgID:      ev.OrgID,
		ProjectID:  ev.ProjectID,
		DailyLogID: ev.DailyLogID,
		Action:     string(ev.Action),
		FromStatus: ev.FromStatus,
		ToStatus:   ev.ToStatus,
		ActorID:    ev.ActorID,
		ActorRole:  ev.ActorRole,
		Comment:    ev.Comment,
		QCRating:   ev.QCRating,
		CreatedAt:  ev.OccurredAt,
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&activity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 && s.hub != nil {
		s.hub.Publish(activity)
	}
	return nil
}

// List returns the tenant's activity feed, newest first
func (s *ActivityService) List(ctx context.Context, p Principal, req *ActivityListRequest) ([]models.Activity, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.Activity{}).Scopes(models.TenantScope(p.OrgID))
	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.DailyLogID != "" {
		query = query.Where("daily_log_id = ?", req.DailyLogID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Activity
	err := query.Scopes(models.Paginate(req.Page, req.Limit)).
		Order("created_at DESC").
		Find(&items).Error
	return items, total, err
}
