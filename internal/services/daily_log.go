package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/logger"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type DailyLogService struct {
	db     *gorm.DB
	events EventQueue
}

func NewDailyLogService(db *gorm.DB, events EventQueue) *DailyLogService {
	return &DailyLogService{db: db, events: events}
}

type DailyLogListRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	ProjectID  string `form:"project_id"`
	CategoryID string `form:"category_id"`
	Status     string `form:"status" binding:"omitempty,oneof=DRAFT SUBMITTED APPROVED DECLINED"`
	ReporterID string `form:"reporter_id"`
	DateFrom   string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo     string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
}

type DailyLogTaskInput struct {
	TaskID      string  `json:"task_id" binding:"required"`
	ProgressPct float64 `json:"progress_pct" binding:"gte=0,lte=100"`
	Hours       float64 `json:"hours" binding:"gte=0"`
	Notes       string  `json:"notes"`
}

type CreateDailyLogRequest struct {
	ProjectID  string              `json:"project_id" binding:"required"`
	CategoryID string              `json:"category_id" binding:"required"`
	Date       string              `json:"date" binding:"required,datetime=2006-01-02"`
	Notes      string              `json:"notes"`
	Media      []models.MediaItem  `json:"media"`
	Tasks      []DailyLogTaskInput `json:"tasks" binding:"omitempty,dive"`
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func validateMedia(items []models.MediaItem) ([]models.MediaItem, error) {
	if len(items) == 0 {
		return nil, response.NewValidation("At least one media item is required").
			WithField("media", "must contain at least one item")
	}
	out := make([]models.MediaItem, 0, len(items))
	for i, item := range items {
		item.URL = strings.TrimSpace(item.URL)
		if item.URL == "" {
			return nil, response.NewValidation("Media items must have a url").
				WithField(fmt.Sprintf("media[%d].url", i), "is required")
		}
		if item.Type == "" {
			item.Type = models.MediaImage
		}
		if !item.Type.Valid() {
			return nil, response.NewValidation("Unsupported media type").
				WithField(fmt.Sprintf("media[%d].type", i), "must be one of: image video document")
		}
		out = append(out, item)
	}
	return out, nil
}

// Create stores a new DRAFT log reported by the caller
func (s *DailyLogService) Create(ctx context.Context, p Principal, req *CreateDailyLogRequest) (*models.DailyLog, error) {
	if !p.Allowed(DailyLogAuthors...) {
		return nil, response.NewForbidden("Only engineers can create daily logs")
	}

	media, err := validateMedia(req.Media)
	if err != nil {
		return nil, err
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, response.NewValidation("Invalid date").WithField("date", "must be a date in format 2006-01-02")
	}

	db := s.db.WithContext(ctx)
	if _, err := findProject(db, p.OrgID, req.ProjectID); err != nil {
		return nil, err
	}
	if _, err := findCategoryInProject(db, p.OrgID, req.ProjectID, req.CategoryID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.Tasks))
	taskIDs := make([]string, 0, len(req.Tasks))
	for i, t := range req.Tasks {
		if seen[t.TaskID] {
			return nil, response.NewValidation("A task can only be linked once per log").
				WithField(fmt.Sprintf("tasks[%d].task_id", i), "is duplicated")
		}
		seen[t.TaskID] = true
		taskIDs = append(taskIDs, t.TaskID)
	}
	if len(taskIDs) > 0 {
		var count int64
		if err := db.Model(&models.Task{}).Scopes(models.TenantScope(p.OrgID)).
			Where("project_id = ? AND id IN ?", req.ProjectID, taskIDs).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if int(count) != len(taskIDs) {
			return nil, response.NewValidation("Linked tasks must belong to the project").
				WithField("tasks", "contains a task outside the project")
		}
	}

	log := &models.DailyLog{
		OrgID:      p.OrgID,
		ProjectID:  req.ProjectID,
		CategoryID: req.CategoryID,
		Date:       date,
		ReporterID: p.UserID,
		Notes:      req.Notes,
		Media:      datatypes.JSONSlice[models.MediaItem](media),
		Status:     models.LogStatusDraft,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		for _, t := range req.Tasks {
			link := models.DailyLogTask{
				OrgID:       p.OrgID,
				DailyLogID:  log.ID,
				TaskID:      t.TaskID,
				ProgressPct: t.ProgressPct,
				Hours:       t.Hours,
				Notes:       t.Notes,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			log.Tasks = append(log.Tasks, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// List returns the tenant's logs, most recent date first
func (s *DailyLogService) List(ctx context.Context, p Principal, req *DailyLogListRequest) ([]models.DailyLog, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.DailyLog{}).Scopes(models.TenantScope(p.OrgID))
	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.CategoryID != "" {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.ReporterID != "" {
		query = query.Where("reporter_id = ?", req.ReporterID)
	}
	if req.DateFrom != "" {
		from, err := ParseDate(req.DateFrom)
		if err != nil {
			return nil, 0, response.NewValidation("Invalid date_from").WithField("date_from", "must be a date in format 2006-01-02")
		}
		query = query.Where("date >= ?", from)
	}
	if req.DateTo != "" {
		to, err := ParseDate(req.DateTo)
		if err != nil {
			return nil, 0, response.NewValidation("Invalid date_to").WithField("date_to", "must be a date in format 2006-01-02")
		}
		query = query.Where("date <= ?", to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.DailyLog
	err := query.Scopes(models.Paginate(req.Page, req.Limit)).
		Order("date DESC").Order("created_at DESC").
		Find(&logs).Error
	return logs, total, err
}

func (s *DailyLogService) find(ctx context.Context, orgID, id string) (*models.DailyLog, error) {
	var log models.DailyLog
	err := s.db.WithContext(ctx).Scopes(models.TenantScope(orgID)).
		Preload("Tasks").
		First(&log, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("Daily log not found")
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetByID returns a log with its task links
func (s *DailyLogService) GetByID(ctx context.Context, p Principal, id string) (*models.DailyLog, error) {
	return s.find(ctx, p.OrgID, id)
}

// Transition applies a workflow action. The update is guarded on the status the
// plan was made against, so of two concurrent transitions only one succeeds.
func (s *DailyLogService) Transition(ctx context.Context, p Principal, id string, req *TransitionRequest) (*models.DailyLog, error) {
	action, err := ParseLogAction(req.Action)
	if err != nil {
		return nil, err
	}

	log, err := s.find(ctx, p.OrgID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	plan, err := PlanTransition(p, log.Status, action, req, now)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&models.DailyLog{}).
		Where("id = ? AND org_id = ? AND status = ?", id, p.OrgID, plan.From).
		Updates(plan.Updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, response.NewConflict("Daily log was changed by another request; reload and retry")
	}

	updated, err := s.find(ctx, p.OrgID, id)
	if err != nil {
		return nil, err
	}

	s.emit(&TransitionEvent{
		OrgID:      p.OrgID,
		ProjectID:  updated.ProjectID,
		DailyLogID: updated.ID,
		Action:     action,
		FromStatus: plan.From,
		ToStatus:   plan.To,
		ActorID:    p.UserID,
		ActorRole:  p.Role,
		Comment:    strings.TrimSpace(req.Comment),
		QCRating:   updated.QCRating,
		OccurredAt: now,
	})

	return updated, nil
}

func (s *DailyLogService) emit(ev *TransitionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Enqueue(ev); err != nil {
		logger.Error().Err(err).Str("daily_log_id", ev.DailyLogID).Msg("failed to enqueue transition event")
	}
}

// Delete soft-deletes a DRAFT log. Only its reporter or an admin may do so.
func (s *DailyLogService) Delete(ctx context.Context, p Principal, id string) error {
	log, err := s.find(ctx, p.OrgID, id)
	if err != nil {
		return err
	}
	if !p.Bypass && p.Role != models.RoleAdmin && log.ReporterID != p.UserID {
		return response.NewForbidden("Only the reporter or an admin can delete this log")
	}
	if log.Status != models.LogStatusDraft {
		return response.NewValidation("Can only delete logs in DRAFT status")
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND org_id = ? AND status = ?", id, p.OrgID, models.LogStatusDraft).
		Delete(&models.DailyLog{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewConflict("Daily log was changed by another request; reload and retry")
	}
	return nil
}
