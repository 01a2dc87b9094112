package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"elva.app/accounting/common/logger"
	"elva.app/accounting/internal/http/dto"
	"elva.app/accounting/internal/service"
)

type UsageHandler struct {
	quota service.QuotaService
}

func NewUsageHandler(quota service.QuotaService) *UsageHandler {
	return &UsageHandler{quota: quota}
}

// ConversationCreated counts a new conversation. It always answers 200 with
// allowed=true; counting failures are logged, never surfaced as a block.
func (h *UsageHandler) ConversationCreated(c *gin.Context) {
	orgID := c.Param("org_id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{OrganizationID: &orgID})

	decision, err := h.quota.RecordConversationCreated(ctx, orgID)
	if err != nil {
		slog.WarnContext(ctx, "conversation counted with degraded accounting", "error", err)
	}

	c.JSON(http.StatusOK, dto.ToQuotaDecisionResponse(decision))
}

func (h *UsageHandler) Usage(c *gin.Context) {
	orgID := c.Param("org_id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{OrganizationID: &orgID})

	usage, err := h.quota.Usage(ctx, orgID)
	if err != nil {
		if errors.Is(err, service.ErrOrganizationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load usage", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, dto.ToUsageResponse(orgID, usage))
}
