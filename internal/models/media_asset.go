package models

import "gorm.io/gorm"

// MediaAsset is metadata for an uploaded file. The bytes live in external storage.
type MediaAsset struct {
	Base
	OrgID      string         `gorm:"size:36;index;not null" json:"org_id"`
	ProjectID  *string        `gorm:"size:36;index" json:"project_id"`
	URL        string         `gorm:"size:1000;not null" json:"url"`
	Kind       MediaKind      `gorm:"size:20;not null" json:"kind"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	SizeBytes  int64          `json:"size_bytes"`
	MimeType   string         `gorm:"size:100" json:"mime_type"`
	UploadedBy string         `gorm:"size:36" json:"uploaded_by"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (MediaAsset) TableName() string { return "media_assets" }
