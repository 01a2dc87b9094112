package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"elva.app/accounting/common/logger"
	"elva.app/accounting/internal/http/dto"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
)

type WidgetHandler struct {
	widgets   service.WidgetService
	analytics service.AnalyticsService
}

func NewWidgetHandler(widgets service.WidgetService, analytics service.AnalyticsService) *WidgetHandler {
	return &WidgetHandler{
		widgets:   widgets,
		analytics: analytics,
	}
}

func (h *WidgetHandler) UpdateRetention(c *gin.Context) {
	widgetID := c.Param("widget_id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{WidgetID: &widgetID})

	var req dto.UpdateRetentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	widget, err := h.widgets.UpdateRetentionPolicy(ctx, widgetID, req.Policy())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRetentionPolicy):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrWidgetNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		default:
			slog.ErrorContext(ctx, "failed to update retention policy", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update retention policy"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToRetentionPolicyResponse(widget))
}

// Analytics lists stored days; from and to are optional inclusive dates.
func (h *WidgetHandler) Analytics(c *gin.Context) {
	widgetID := c.Param("widget_id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{WidgetID: &widgetID})

	from, to := optionalQuery(c, "from"), optionalQuery(c, "to")
	if !validDate(from) || !validDate(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to must be YYYY-MM-DD"})
		return
	}

	days, err := h.analytics.Days(ctx, widgetID, from, to)
	if err != nil {
		if errors.Is(err, service.ErrWidgetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to list analytics days", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list analytics"})
		return
	}
	if days == nil {
		days = []model.AnalyticsDay{}
	}

	c.JSON(http.StatusOK, dto.AnalyticsDaysResponse{WidgetID: widgetID, Days: days})
}

func validDate(s *string) bool {
	if s == nil {
		return true
	}
	_, err := time.Parse(model.DateLayout, *s)
	return err == nil
}

func optionalQuery(c *gin.Context, key string) *string {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil
	}
	return &v
}
