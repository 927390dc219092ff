package services

import (
	"context"
	"errors"
	"strings"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/gorm"
)

type MediaService struct {
	db *gorm.DB
}

func NewMediaService(db *gorm.DB) *MediaService {
	return &MediaService{db: db}
}

type MediaListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	ProjectID string `form:"project_id"`
	Kind      string `form:"kind" binding:"omitempty,oneof=image video document"`
}

type RegisterMediaRequest struct {
	ProjectID *string          `json:"project_id"`
	URL       string           `json:"url" binding:"required,url,max=1000"`
	Kind      models.MediaKind `json:"kind" binding:"required,oneof=image video document"`
	Width     int              `json:"width" binding:"gte=0"`
	Height    int              `json:"height" binding:"gte=0"`
	SizeBytes int64            `json:"size_bytes" binding:"gte=0"`
	MimeType  string           `json:"mime_type" binding:"max=100"`
}

// Register stores metadata for a file already uploaded to object storage
func (s *MediaService) Register(ctx context.Context, p Principal, req *RegisterMediaRequest) (*models.MediaAsset, error) {
	db := s.db.WithContext(ctx)
	if req.ProjectID != nil && *req.ProjectID != "" {
		if _, err := findProject(db, p.OrgID, *req.ProjectID); err != nil {
			return nil, err
		}
	} else {
		req.ProjectID = nil
	}

	asset := models.MediaAsset{
		OrgID:      p.OrgID,
		ProjectID:  req.ProjectID,
		URL:        strings.TrimSpace(req.URL),
		Kind:       req.Kind,
		Width:      req.Width,
		Height:     req.Height,
		SizeBytes:  req.SizeBytes,
		MimeType:   req.MimeType,
		UploadedBy: p.UserID,
	}
	if err := db.Create(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *MediaService) List(ctx context.Context, p Principal, req *MediaListRequest) ([]models.MediaAsset, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.MediaAsset{}).Scopes(models.TenantScope(p.OrgID))
	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.Kind != "" {
		query = query.Where("kind = ?", req.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.MediaAsset
	err := query.Scopes(models.Paginate(req.Page, req.Limit)).Order("created_at DESC").Find(&items).Error
	return items, total, err
}

func (s *MediaService) GetByID(ctx context.Context, p Principal, id string) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	err := s.db.WithContext(ctx).Scopes(models.TenantScope(p.OrgID)).First(&asset, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("Media asset not found")
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}
