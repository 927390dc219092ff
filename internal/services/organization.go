package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/utils"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NewOrganization is the input for creating a tenant with its first admin.
type NewOrganization struct {
	Name          string
	Slug          string
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// CreateOrganization creates the tenant and its ADMIN in one transaction.
// A taken slug or email is a conflict.
func CreateOrganization(ctx context.Context, db *gorm.DB, in NewOrganization) (*models.Organization, *models.User, error) {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, nil, response.NewValidation("Invalid organization slug").
			WithField("slug", "may only contain lowercase letters, digits and single dashes")
	}
	if len(in.AdminPassword) < 8 {
		return nil, nil, response.NewValidation("Password is too short").
			WithField("password", "must be at least 8")
	}

	hash, err := utils.HashPassword(in.AdminPassword)
	if err != nil {
		return nil, nil, err
	}

	org := models.Organization{Name: strings.TrimSpace(in.Name), Slug: slug}
	user := models.User{
		Email:    strings.ToLower(strings.TrimSpace(in.AdminEmail)),
		Password: hash,
		Name:     strings.TrimSpace(in.AdminName),
		Role:     models.RoleAdmin,
		AuthType: "local",
		IsActive: true,
	}
	if user.Name == "" {
		user.Name = "Administrator"
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Organization{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict("Organization slug is already taken")
		}
		if err := ensureEmailFree(tx, user.Email); err != nil {
			return err
		}

		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		user.OrgID = org.ID
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &org, &user, nil
}

// Emails are unique across tenants since login is by email alone.
func ensureEmailFree(db *gorm.DB, email string) error {
	var count int64
	if err := db.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return response.NewConflict("Email is already registered")
	}
	return nil
}
