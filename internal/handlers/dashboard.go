package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
	calendar         *services.WorkCalendar
}

func NewDashboardHandler(dashboardService *services.DashboardService, calendar *services.WorkCalendar) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, calendar: calendar}
}

// GetStats returns the organization KPIs
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.GetStats(c.Request.Context(), middleware.GetPrincipal(c), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, stats)
}

// ListCountries returns the holiday calendars usable as a project country_code
// GET /api/v1/calendar/countries
func (h *DashboardHandler) ListCountries(c *gin.Context) {
	response.OK(c, gin.H{"items": h.calendar.SupportedCountries()})
}
