package models

import "time"

// Activity is one entry in the workflow feed, written when a daily log changes state.
type Activity struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	OrgID      string    `gorm:"size:36;index;not null" json:"org_id"`
	ProjectID  string    `gorm:"size:36;index" json:"project_id"`
	DailyLogID string    `gorm:"size:36;index" json:"daily_log_id"`
	Action     string    `gorm:"size:20;not null" json:"action"`
	FromStatus LogStatus `gorm:"size:20" json:"from_status"`
	ToStatus   LogStatus `gorm:"size:20" json:"to_status"`
	ActorID    string    `gorm:"size:36" json:"actor_id"`
	ActorRole  Role      `gorm:"size:20" json:"actor_role"`
	Comment    string    `gorm:"type:text" json:"comment"`
	QCRating   *int      `json:"qc_rating,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (Activity) TableName() string { return "activities" }
