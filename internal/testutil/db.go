// Package testutil provides an in-memory store for service and handler tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite store private to the calling test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:siteflow_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := models.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = models.CloseDB(db) })
	return db
}

// Tenant is a seeded organization with one user per role.
type Tenant struct {
	Org   models.Organization
	Users map[models.Role]models.User
}

// SeedTenant creates an organization named slug with a user for every role.
func SeedTenant(t *testing.T, db *gorm.DB, slug string) *Tenant {
	t.Helper()

	tenant := &Tenant{
		Org:   models.Organization{Name: slug, Slug: slug},
		Users: make(map[models.Role]models.User),
	}
	if err := db.Create(&tenant.Org).Error; err != nil {
		t.Fatalf("failed to seed organization: %v", err)
	}
	for _, role := range models.AllRoles {
		user := models.User{
			OrgID:    tenant.Org.ID,
			Email:    fmt.Sprintf("%s@%s.test", role, slug),
			Name:     string(role),
			Role:     role,
			AuthType: "local",
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
		tenant.Users[role] = user
	}
	return tenant
}

// UserID returns the seeded user id for role.
func (tn *Tenant) UserID(role models.Role) string {
	return tn.Users[role].ID
}
