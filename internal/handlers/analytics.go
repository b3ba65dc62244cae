package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/croswell/taskmaster-api/internal/errors"
	"github.com/croswell/taskmaster-api/internal/middleware"
	"github.com/croswell/taskmaster-api/internal/services"
)

// AnalyticsHandler serves the productivity analytics endpoints.
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GetDashboard returns every analytics view composed into one response.
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	dashboard, err := h.analyticsService.Dashboard(userID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// GetOverview returns the current user's performance overview.
func (h *AnalyticsHandler) GetOverview(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	overview, err := h.analyticsService.Overview(userID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetTrends returns completion trends. Query parameters: period
// (daily|weekly), start_date and end_date as YYYY-MM-DD.
func (h *AnalyticsHandler) GetTrends(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	period := services.TrendPeriod(c.DefaultQuery("period", string(services.TrendPeriodWeekly)))

	var start, end time.Time
	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid start_date")
			return
		}
		start = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid end_date")
			return
		}
		end = parsed
	}

	trends, err := h.analyticsService.Trends(userID, period, start, end)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, trends)
}

// GetHourlyProductivity returns completed-task counts by hour of day.
func (h *AnalyticsHandler) GetHourlyProductivity(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	hourly, err := h.analyticsService.Hourly(userID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, hourly)
}

// GetWeekdayProductivity returns completed-task counts by day of week.
func (h *AnalyticsHandler) GetWeekdayProductivity(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	weekday, err := h.analyticsService.Weekday(userID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, weekday)
}

// GetInsights returns rule-based productivity observations.
func (h *AnalyticsHandler) GetInsights(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	insights, err := h.analyticsService.Insights(userID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, insights)
}
