package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/utils"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Q        string `form:"q"`
	Role     string `form:"role" binding:"omitempty,oneof=ENGINEER PM SUPERVISOR QC ACCOUNTANT ADMIN"`
	AuthType string `form:"auth_type" binding:"omitempty,oneof=local ldap"`
}

type CreateUserRequest struct {
	Email    string      `json:"email" binding:"required,email"`
	Name     string      `json:"name" binding:"required,max=100"`
	Password string      `json:"password" binding:"required,min=8,max=72"`
	Role     models.Role `json:"role" binding:"required,oneof=ENGINEER PM SUPERVISOR QC ACCOUNTANT ADMIN"`
}

type UpdateUserRequest struct {
	Name     *string      `json:"name" binding:"omitempty,min=1,max=100"`
	Role     *models.Role `json:"role" binding:"omitempty,oneof=ENGINEER PM SUPERVISOR QC ACCOUNTANT ADMIN"`
	IsActive *bool        `json:"is_active"`
}

func (s *UserService) List(ctx context.Context, p Principal, req *UserListRequest) ([]models.User, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.User{}).Scopes(models.TenantScope(p.OrgID))
	if q := strings.TrimSpace(req.Q); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.AuthType != "" {
		query = query.Where("auth_type = ?", req.AuthType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.Scopes(models.Paginate(req.Page, req.Limit)).Order("created_at ASC").Find(&users).Error
	return users, total, err
}

// Create adds a local user to the caller's organization
func (s *UserService) Create(ctx context.Context, p Principal, req *CreateUserRequest) (*models.User, error) {
	if !p.Allowed(Admins...) {
		return nil, response.NewForbidden("Only admins can manage users")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		OrgID:    p.OrgID,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
		AuthType: "local",
		IsActive: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEmailFree(tx, user.Email); err != nil {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update changes name, role or active flag. Admins cannot demote or disable
// themselves, which would lock the organization out.
func (s *UserService) Update(ctx context.Context, p Principal, id string, req *UpdateUserRequest) (*models.User, error) {
	if !p.Allowed(Admins...) {
		return nil, response.NewForbidden("Only admins can manage users")
	}
	if id == p.UserID && ((req.Role != nil && *req.Role != models.RoleAdmin) || (req.IsActive != nil && !*req.IsActive)) {
		return nil, response.NewValidation("You cannot demote or disable your own account")
	}

	db := s.db.WithContext(ctx)
	user, err := s.find(db, p.OrgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		if req.IsActive != nil && !*req.IsActive {
			// A disabled user keeps no working refresh tokens
			return tx.Model(&models.RefreshToken{}).
				Where("user_id = ? AND revoked_at IS NULL", id).
				Update("revoked_at", time.Now()).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.find(db, p.OrgID, id)
}

func (s *UserService) find(db *gorm.DB, orgID, id string) (*models.User, error) {
	var user models.User
	err := db.Scopes(models.TenantScope(orgID)).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
