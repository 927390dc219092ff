package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/logger"
	"gorm.io/gorm"
)

// AuditEntry is one audited write request.
type AuditEntry struct {
	Level     string
	Module    string
	Action    string
	Message   string
	OrgID     string
	UserID    string
	IP        string
	UserAgent string
	Extra     interface{}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level" binding:"omitempty,oneof=info warning error"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Search    string `form:"search"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Record writes an audit entry. Failures are logged, never returned, so
// auditing cannot break the request being audited.
func (s *SystemLogService) Record(entry AuditEntry) {
	var extra string
	if entry.Extra != nil {
		if b, err := json.Marshal(entry.Extra); err == nil {
			extra = string(b)
		}
	}
	if entry.Level == "" {
		entry.Level = "info"
	}

	row := &models.SystemLog{
		Level:     entry.Level,
		Module:    entry.Module,
		Action:    entry.Action,
		Message:   entry.Message,
		OrgID:     optional(entry.OrgID),
		UserID:    optional(entry.UserID),
		IP:        entry.IP,
		UserAgent: truncate(entry.UserAgent, 500),
		Extra:     extra,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(row).Error; err != nil {
		logger.Error().Err(err).Str("module", entry.Module).Msg("failed to write system log")
	}
}

// List returns the caller organization's audit trail, newest first
func (s *SystemLogService) List(ctx context.Context, p Principal, req *SystemLogListRequest) ([]models.SystemLog, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.SystemLog{}).Scopes(models.TenantScope(p.OrgID))
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		if start, err := ParseDate(req.StartDate); err == nil {
			query = query.Where("created_at >= ?", start)
		}
	}
	if req.EndDate != "" {
		if end, err := ParseDate(req.EndDate); err == nil {
			query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
		}
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.SystemLog
	err := query.Scopes(models.Paginate(req.Page, req.Limit)).Order("created_at DESC").Find(&logs).Error
	return logs, total, err
}

// CleanupOldLogs deletes logs older than retentionDays and returns how many were removed
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
