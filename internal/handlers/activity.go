package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/pkg/response"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// List returns the workflow activity feed
// GET /api/v1/activities
func (h *ActivityHandler) List(c *gin.Context) {
	var req services.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	items, total, err := h.activityService.List(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, items, total, req.Page, req.Limit)
}
