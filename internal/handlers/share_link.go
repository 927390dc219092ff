package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/pkg/response"
)

type ShareLinkHandler struct {
	shareLinkService *services.ShareLinkService
}

func NewShareLinkHandler(shareLinkService *services.ShareLinkService) *ShareLinkHandler {
	return &ShareLinkHandler{shareLinkService: shareLinkService}
}

// List returns share links, optionally for one project
// GET /api/v1/share-links
func (h *ShareLinkHandler) List(c *gin.Context) {
	var req services.ShareLinkListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	items, total, err := h.shareLinkService.List(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, items, total, req.Page, req.Limit)
}

// Create issues a new public link for a project
// POST /api/v1/share-links
func (h *ShareLinkHandler) Create(c *gin.Context) {
	var req services.CreateShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	link, err := h.shareLinkService.Create(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"ok": true, "share_link": link})
}

// Revoke disables a share link
// DELETE /api/v1/share-links/:id
func (h *ShareLinkHandler) Revoke(c *gin.Context) {
	if err := h.shareLinkService.Revoke(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"ok": true})
}

// View renders the redacted project for an anonymous visitor
// GET /api/v1/share/:token
func (h *ShareLinkHandler) View(c *gin.Context) {
	view, err := h.shareLinkService.PublicView(c.Request.Context(), c.Param("token"), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	response.OK(c, view)
}
