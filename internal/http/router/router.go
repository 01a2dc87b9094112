package router

import (
	"github.com/gin-gonic/gin"

	"elva.app/accounting/internal/http/handler"
	"elva.app/accounting/internal/http/middleware"
	"elva.app/accounting/internal/metrics"
	"elva.app/accounting/internal/service"
)

type RouterConfig struct {
	// ServiceSecret guards the organization and widget routes called by
	// other internal services; empty disables them with 503.
	ServiceSecret string
	// JobsSecret guards the ops group; empty disables it with 503.
	JobsSecret string
}

func SetupRoutes(router *gin.Engine, services *service.Services, runner handler.JobRunner, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		internal := v1.Group("")
		internal.Use(middleware.RequireBearerToken(cfg.ServiceSecret))

		usageHandler := handler.NewUsageHandler(services.Quota())
		OrganizationRouter(internal.Group("/organizations"), usageHandler)

		widgetHandler := handler.NewWidgetHandler(services.Widgets(), services.Analytics())
		WidgetRouter(internal.Group("/widgets"), widgetHandler)

		jobsHandler := handler.NewJobsHandler(runner, services.Audit())
		ops := v1.Group("")
		ops.Use(middleware.RequireBearerToken(cfg.JobsSecret))
		JobsRouter(ops, jobsHandler)
	}
}

// OrganizationRouter and WidgetRouter expect a group that already carries the service token check.
func OrganizationRouter(rg *gin.RouterGroup, h *handler.UsageHandler) {
	rg.POST("/:org_id/conversations", h.ConversationCreated)
	rg.GET("/:org_id/usage", h.Usage)
}

func WidgetRouter(rg *gin.RouterGroup, h *handler.WidgetHandler) {
	rg.PUT("/:widget_id/retention", h.UpdateRetention)
	rg.GET("/:widget_id/analytics", h.Analytics)
}

// JobsRouter mounts the ops endpoints; the group must already carry the bearer check.
func JobsRouter(rg *gin.RouterGroup, h *handler.JobsHandler) {
	jobs := rg.Group("/jobs")
	{
		jobs.POST("/retention", h.Retention)
		jobs.POST("/reconcile", h.Reconcile)
		jobs.POST("/analytics/rebuild", h.RebuildAnalytics)
		jobs.POST("/audit/purge", h.PurgeAudit)
	}
	rg.GET("/audit-logs", h.AuditLogs)
}
