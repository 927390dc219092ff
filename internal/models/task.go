package models

import (
	"time"

	"gorm.io/gorm"
)

type Task struct {
	Base
	OrgID          string         `gorm:"size:36;index;not null" json:"org_id"`
	ProjectID      string         `gorm:"size:36;index;not null" json:"project_id"`
	CategoryID     string         `gorm:"size:36;index;not null" json:"category_id"`
	Name           string         `gorm:"size:300;not null" json:"name"`
	Status         TaskStatus     `gorm:"size:20;index;default:waiting" json:"status"`
	Priority       TaskPriority   `gorm:"size:20;default:medium" json:"priority"`
	EstimatedHours float64        `gorm:"default:0" json:"estimated_hours"`
	ActualHours    float64        `gorm:"default:0" json:"actual_hours"`
	DueDate        *time.Time     `gorm:"type:date" json:"due_date"`
	AssigneeID     *string        `gorm:"size:36;index" json:"assignee_id"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Task) TableName() string { return "tasks" }
