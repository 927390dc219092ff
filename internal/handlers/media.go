package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/pkg/response"
)

type MediaHandler struct {
	mediaService *services.MediaService
}

func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// List returns registered media assets
// GET /api/v1/media
func (h *MediaHandler) List(c *gin.Context) {
	var req services.MediaListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	items, total, err := h.mediaService.List(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, items, total, req.Page, req.Limit)
}

// Register stores metadata for an uploaded file
// POST /api/v1/media
func (h *MediaHandler) Register(c *gin.Context) {
	var req services.RegisterMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	asset, err := h.mediaService.Register(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"ok": true, "media": asset})
}

// GetByID returns one media asset
// GET /api/v1/media/:id
func (h *MediaHandler) GetByID(c *gin.Context) {
	asset, err := h.mediaService.GetByID(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, asset)
}
