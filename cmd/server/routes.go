package main

import (
	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	shareLimiter := middleware.NewRateLimiter(svc.cfg.RateLimit.Share)
	authLimiter := middleware.NewRateLimiter(svc.cfg.RateLimit.Auth)
	svc.limiters = append(svc.limiters, shareLimiter, authLimiter)

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api/v1")
	if svc.cfg.BypassAllowed() {
		api.Use(middleware.E2EBypass())
	}
	{
		// Public
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/signup", svc.authHandler.Signup)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}
		api.GET("/share/:token", shareLimiter.Middleware(), svc.shareLinkHandler.View)
		api.GET("/events/daily-logs", middleware.AuthRequiredWithQueryToken(), svc.sseHandler.StreamDailyLogEvents)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog(svc.systemLog))
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			protected.GET("/dashboard/stats", svc.dashboardHandler.GetStats)
			protected.GET("/calendar/countries", svc.dashboardHandler.ListCountries)

			// Projects and categories
			writers := middleware.RequireRoles(services.ProjectWriters...)
			protected.GET("/projects", svc.projectHandler.List)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.POST("/projects", writers, svc.projectHandler.Create)
			protected.PATCH("/projects/:id", writers, svc.projectHandler.Update)
			protected.DELETE("/projects/:id", middleware.AdminRequired(), svc.projectHandler.Delete)
			protected.GET("/projects/:id/categories", svc.projectHandler.ListCategories)
			protected.POST("/projects/:id/categories", writers, svc.projectHandler.CreateCategory)
			protected.PATCH("/categories/:id", writers, svc.projectHandler.UpdateCategory)

			// Tasks
			protected.GET("/tasks", svc.taskHandler.List)
			protected.POST("/tasks", writers, svc.taskHandler.Create)
			protected.PATCH("/tasks/:id", middleware.RequireRoles(services.TaskEditors...), svc.taskHandler.Update)

			// Daily logs; transition roles depend on the action and are checked by the workflow
			protected.GET("/daily-logs", svc.dailyLogHandler.List)
			protected.GET("/daily-logs/:id", svc.dailyLogHandler.GetByID)
			protected.POST("/daily-logs", middleware.RequireRoles(services.DailyLogAuthors...), svc.dailyLogHandler.Create)
			protected.PATCH("/daily-logs/:id", svc.dailyLogHandler.Transition)
			protected.DELETE("/daily-logs/:id", svc.dailyLogHandler.Delete)

			// Transactions
			protected.GET("/transactions", svc.transactionHandler.List)
			protected.POST("/transactions", middleware.RequireRoles(services.TransactionAuthors...), svc.transactionHandler.Create)
			protected.PATCH("/transactions/:id", middleware.RequireRoles(services.PaymentEditors...), svc.transactionHandler.UpdatePayment)

			// Share links
			shareManagers := middleware.RequireRoles(services.ShareLinkManagers...)
			protected.GET("/share-links", svc.shareLinkHandler.List)
			protected.POST("/share-links", shareManagers, svc.shareLinkHandler.Create)
			protected.DELETE("/share-links/:id", shareManagers, svc.shareLinkHandler.Revoke)

			// Media and activity
			protected.GET("/media", svc.mediaHandler.List)
			protected.POST("/media", svc.mediaHandler.Register)
			protected.GET("/media/:id", svc.mediaHandler.GetByID)
			protected.GET("/activities", svc.activityHandler.List)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog(svc.systemLog))
		{
			admin.GET("/users", svc.userHandler.List)
			admin.POST("/users", svc.userHandler.Create)
			admin.PATCH("/users/:id", svc.userHandler.Update)

			admin.GET("/system-logs", svc.systemLogHandler.List)
			admin.GET("/system-logs/retention", svc.systemLogHandler.GetRetentionDays)
		}
	}
}
