package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/pkg/response"
)

type DailyLogHandler struct {
	dailyLogService *services.DailyLogService
}

func NewDailyLogHandler(dailyLogService *services.DailyLogService) *DailyLogHandler {
	return &DailyLogHandler{dailyLogService: dailyLogService}
}

// List returns paginated daily logs
// GET /api/v1/daily-logs
func (h *DailyLogHandler) List(c *gin.Context) {
	var req services.DailyLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	items, total, err := h.dailyLogService.List(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, items, total, req.Page, req.Limit)
}

// GetByID returns a daily log with its task links
// GET /api/v1/daily-logs/:id
func (h *DailyLogHandler) GetByID(c *gin.Context) {
	log, err := h.dailyLogService.GetByID(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, log)
}

// Create files a DRAFT daily log
// POST /api/v1/daily-logs
func (h *DailyLogHandler) Create(c *gin.Context) {
	var req services.CreateDailyLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	log, err := h.dailyLogService.Create(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"ok": true, "daily_log": log})
}

// Transition applies a workflow action: submit, approve, decline or qc
// PATCH /api/v1/daily-logs/:id
func (h *DailyLogHandler) Transition(c *gin.Context) {
	var req services.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	log, err := h.dailyLogService.Transition(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, log)
}

// Delete removes a DRAFT daily log
// DELETE /api/v1/daily-logs/:id
func (h *DailyLogHandler) Delete(c *gin.Context) {
	if err := h.dailyLogService.Delete(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"ok": true})
}
