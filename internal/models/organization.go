package models

// Organization is the tenant root. Every other entity carries its id as org_id.
type Organization struct {
	Base
	Name string `gorm:"size:200;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;size:100;not null" json:"slug"`
}

func (Organization) TableName() string { return "organizations" }
