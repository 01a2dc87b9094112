package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"elva.app/accounting/internal/http/dto"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
)

// JobRunner is the subset of jobs.Runner behind the ops endpoints.
type JobRunner interface {
	Retention(ctx context.Context, scope service.RetentionScope) (*service.RetentionSummary, error)
	Reconcile(ctx context.Context, scope service.ReconcileScope) (*service.BatchResult, error)
	Analytics(ctx context.Context, scope service.AnalyticsScope) (*service.RebuildSummary, error)
	AuditPurge(ctx context.Context) (int64, error)
}

type JobsHandler struct {
	runner JobRunner
	audit  service.AuditService
}

func NewJobsHandler(runner JobRunner, audit service.AuditService) *JobsHandler {
	return &JobsHandler{
		runner: runner,
		audit:  audit,
	}
}

func (h *JobsHandler) Retention(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RetentionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	summary, err := h.runner.Retention(ctx, service.RetentionScope{WidgetIDs: req.WidgetIDs})
	if err != nil {
		slog.ErrorContext(ctx, "retention job failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retention job failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ToRetentionSummaryResponse(summary))
}

func (h *JobsHandler) Reconcile(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReconcileRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.runner.Reconcile(ctx, service.ReconcileScope{OrganizationIDs: req.OrganizationIDs})
	if err != nil {
		slog.ErrorContext(ctx, "reconcile job failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile job failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ToBatchResponse(result))
}

func (h *JobsHandler) RebuildAnalytics(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnalyticsRebuildRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	summary, err := h.runner.Analytics(ctx, service.AnalyticsScope{
		WidgetIDs: req.WidgetIDs,
		From:      req.From,
		To:        req.To,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "analytics rebuild failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analytics rebuild failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ToRebuildResponse(summary))
}

func (h *JobsHandler) PurgeAudit(c *gin.Context) {
	ctx := c.Request.Context()

	deleted, err := h.runner.AuditPurge(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "audit purge failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit purge failed"})
		return
	}

	c.JSON(http.StatusOK, dto.PurgeResponse{Deleted: deleted})
}

// AuditLogs lists entries newest first. Query: action, since (RFC 3339), limit.
func (h *JobsHandler) AuditLogs(c *gin.Context) {
	ctx := c.Request.Context()

	filter := service.AuditFilter{Action: model.AuditAction(c.Query("action"))}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = int32(limit)
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 timestamp"})
			return
		}
		filter.Since = &since
	}

	entries, err := h.audit.List(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list audit logs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit logs"})
		return
	}
	if entries == nil {
		entries = []model.AuditLogEntry{}
	}

	c.JSON(http.StatusOK, dto.AuditLogsResponse{Entries: entries})
}

// bindOptionalJSON accepts an empty body as "no scope".
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}
