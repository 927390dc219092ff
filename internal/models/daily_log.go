package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MediaItem is one photo, video or document attached to a daily log.
type MediaItem struct {
	URL     string    `json:"url"`
	Type    MediaKind `json:"type"`
	Caption string    `json:"caption,omitempty"`
}

// DailyLog is a site report for one project and date, moving through the review workflow.
type DailyLog struct {
	Base
	OrgID         string                         `gorm:"size:36;index;not null" json:"org_id"`
	ProjectID     string                         `gorm:"size:36;index;not null" json:"project_id"`
	CategoryID    string                         `gorm:"size:36;index;not null" json:"category_id"`
	Date          time.Time                      `gorm:"type:date;index" json:"date"`
	ReporterID    string                         `gorm:"size:36;index;not null" json:"reporter_id"`
	Notes         string                         `gorm:"type:text" json:"notes"`
	Media         datatypes.JSONSlice[MediaItem] `json:"media"`
	Status        LogStatus                      `gorm:"size:20;index;not null;default:DRAFT" json:"status"`
	ReviewComment *string                        `gorm:"type:text" json:"review_comment"`
	QCRating      *int                           `json:"qc_rating"`
	ReviewedBy    *string                        `gorm:"size:36" json:"reviewed_by"`
	ReviewedAt    *time.Time                     `json:"reviewed_at"`
	DeletedAt     gorm.DeletedAt                 `gorm:"index" json:"-"`

	Tasks []DailyLogTask `gorm:"foreignKey:DailyLogID" json:"tasks,omitempty"`
}

func (DailyLog) TableName() string { return "daily_logs" }

// DailyLogTask links a log to a task it reported on.
type DailyLogTask struct {
	Base
	OrgID       string  `gorm:"size:36;index;not null" json:"org_id"`
	DailyLogID  string  `gorm:"size:36;uniqueIndex:idx_daily_log_task;not null" json:"daily_log_id"`
	TaskID      string  `gorm:"size:36;uniqueIndex:idx_daily_log_task;not null" json:"task_id"`
	ProgressPct float64 `gorm:"default:0" json:"progress_pct"`
	Hours       float64 `gorm:"default:0" json:"hours"`
	Notes       string  `gorm:"type:text" json:"notes"`
}

func (DailyLogTask) TableName() string { return "daily_log_tasks" }
