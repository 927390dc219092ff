package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/utils"
	"github.com/siteflow/siteflow/pkg/logger"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/gorm"
)

const refreshTokenBytes = 32

var errInvalidCredentials = response.NewUnauthorized("Invalid email or password")

type AuthService struct {
	db        *gorm.DB
	directory DirectoryAuthenticator
	jwtConfig *config.JWTConfig
	ldapCfg   *config.LDAPConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, ldapCfg *config.LDAPConfig, directory DirectoryAuthenticator) *AuthService {
	return &AuthService{
		db:        db,
		directory: directory,
		jwtConfig: jwtCfg,
		ldapCfg:   ldapCfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type" binding:"omitempty,oneof=local ldap"`
}

type SignupRequest struct {
	OrganizationName string `json:"organization_name" binding:"required,max=200"`
	Slug             string `json:"slug" binding:"required,min=2,max=100"`
	Name             string `json:"name" binding:"required,max=100"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8,max=72"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// TokenPair is what every successful login or refresh returns.
type TokenPair struct {
	AccessToken     string       `json:"access_token"`
	AccessExpireAt  time.Time    `json:"access_expire_at"`
	RefreshToken    string       `json:"refresh_token"`
	RefreshExpireAt time.Time    `json:"refresh_expire_at"`
	User            *models.User `json:"user"`
}

// Signup creates an organization together with its first ADMIN and logs them in.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest, clientIP, userAgent string) (*TokenPair, *models.Organization, error) {
	org, user, err := CreateOrganization(ctx, s.db, NewOrganization{
		Name:          req.OrganizationName,
		Slug:          req.Slug,
		AdminName:     req.Name,
		AdminEmail:    req.Email,
		AdminPassword: req.Password,
	})
	if err != nil {
		return nil, nil, err
	}

	pair, _, err := s.issue(ctx, user, clientIP, userAgent)
	if err != nil {
		return nil, nil, err
	}
	return pair, org, nil
}

// Login authenticates locally or against LDAP and issues a token pair
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP, userAgent string) (*TokenPair, error) {
	var user *models.User
	var err error

	switch req.AuthType {
	case "", "local":
		user, err = s.localAuth(ctx, req.Email, req.Password)
	case "ldap":
		user, err = s.ldapAuth(ctx, req.Email, req.Password)
	default:
		return nil, response.NewValidation("Invalid auth type").WithField("auth_type", "must be one of: local ldap")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(user).Update("last_login", now).Error; err != nil {
		logger.Warnf("[Auth] failed to record last login for %s: %v", user.ID, err)
	}
	user.LastLogin = &now

	pair, _, err := s.issue(ctx, user, clientIP, userAgent)
	return pair, err
}

func (s *AuthService) issue(ctx context.Context, user *models.User, clientIP, userAgent string) (*TokenPair, *models.RefreshToken, error) {
	now := time.Now()
	access, err := utils.GenerateToken(user.ID, user.OrgID, user.Email, string(user.Role), s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := utils.RandomToken(refreshTokenBytes)
	if err != nil {
		return nil, nil, err
	}
	record := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   utils.HashToken(refresh),
		ExpiresAt:   now.Add(time.Duration(s.refreshHours()) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, nil, err
	}

	return &TokenPair{
		AccessToken:     access,
		AccessExpireAt:  now.Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
		RefreshToken:    refresh,
		RefreshExpireAt: record.ExpiresAt,
		User:            user,
	}, &record, nil
}

func (s *AuthService) refreshHours() int {
	if s.jwtConfig.RefreshExpireHour > 0 {
		return s.jwtConfig.RefreshExpireHour
	}
	return 720
}

// Refresh rotates a refresh token: the presented one is revoked and replaced.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP, userAgent string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, response.NewUnauthorized("Refresh token required")
	}

	db := s.db.WithContext(ctx)
	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", utils.HashToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("Invalid refresh token")
		}
		return nil, err
	}
	if stored.RevokedAt != nil {
		return nil, response.NewUnauthorized("Refresh token revoked")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, response.NewUnauthorized("Refresh token expired")
	}

	user, err := s.activeUser(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	// Revoke first, guarded, so a token replayed concurrently rotates only once.
	now := time.Now()
	result := db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", stored.ID).
		Update("revoked_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, response.NewUnauthorized("Refresh token revoked")
	}

	pair, record, err := s.issue(ctx, user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}
	if err := db.Model(&stored).Update("replaced_by_token_id", record.ID).Error; err != nil {
		logger.Warnf("[Auth] failed to link rotated refresh token %d: %v", stored.ID, err)
	}
	return pair, nil
}

// Logout revokes the given refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", utils.HashToken(refreshToken)).
		Update("revoked_at", time.Now()).Error
}

func (s *AuthService) activeUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("User not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, response.NewUnauthorized("User is disabled")
	}
	return &user, nil
}

// Me returns the caller's user record
func (s *AuthService) Me(ctx context.Context, p Principal) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Scopes(models.TenantScope(p.OrgID)).First(&user, "id = ?", p.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, p Principal, req *ChangePasswordRequest) error {
	user, err := s.Me(ctx, p)
	if err != nil {
		return err
	}
	if user.AuthType != "local" {
		return response.NewValidation("LDAP users cannot change password here")
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewValidation("Incorrect old password").WithField("old_password", "is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"password":   hash,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (s *AuthService) localAuth(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND auth_type = ?", strings.ToLower(strings.TrimSpace(email)), "local").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, response.NewUnauthorized("User is disabled")
	}
	return &user, nil
}

// ldapAuth provisions unknown directory users as ENGINEERs of the configured organization.
func (s *AuthService) ldapAuth(ctx context.Context, username, password string) (*models.User, error) {
	if s.directory == nil || !s.directory.Enabled() {
		return nil, response.NewValidation("LDAP login is not enabled")
	}

	entry, err := s.directory.Authenticate(username, password)
	if err != nil {
		logger.Warnf("[Auth] LDAP login failed for %s: %v", username, err)
		return nil, errInvalidCredentials
	}

	email := strings.ToLower(entry.Email)
	if email == "" {
		return nil, response.NewUnauthorized("Directory account has no email address")
	}

	db := s.db.WithContext(ctx)
	var user models.User
	err = db.Where("email = ? AND auth_type = ?", email, "ldap").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var org models.Organization
		if err := db.Where("slug = ?", s.ldapCfg.DefaultOrgSlug).First(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, response.NewUnauthorized("No organization is configured for directory users")
			}
			return nil, err
		}
		if err := ensureEmailFree(db, email); err != nil {
			return nil, err
		}
		user = models.User{
			OrgID:    org.ID,
			Email:    email,
			Name:     entry.Name,
			Role:     models.RoleEngineer,
			AuthType: "ldap",
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, response.NewUnauthorized("User is disabled")
	}
	if entry.Name != "" && entry.Name != user.Name {
		db.Model(&user).Update("name", entry.Name)
	}
	return &user, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
