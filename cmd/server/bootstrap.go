package main

import (
	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/handlers"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/internal/utils"
	"github.com/siteflow/siteflow/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg       *config.Config
	db        *gorm.DB
	hub       *services.SSEHub
	eventQ    services.EventQueue
	worker    *services.Worker
	scheduler *services.Scheduler
	systemLog *services.SystemLogService
	limiters  []*middleware.RateLimiter

	authHandler        *handlers.AuthHandler
	dashboardHandler   *handlers.DashboardHandler
	projectHandler     *handlers.ProjectHandler
	taskHandler        *handlers.TaskHandler
	dailyLogHandler    *handlers.DailyLogHandler
	transactionHandler *handlers.TransactionHandler
	shareLinkHandler   *handlers.ShareLinkHandler
	mediaHandler       *handlers.MediaHandler
	activityHandler    *handlers.ActivityHandler
	userHandler        *handlers.UserHandler
	systemLogHandler   *handlers.SystemLogHandler
	healthHandler      *handlers.HealthHandler
	sseHandler         *handlers.SSEHandler
}

// bootstrap wires services and handlers on an open, migrated store.
// Background work is not started here; see start.
func bootstrap(cfg *config.Config, db *gorm.DB) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	hub := services.NewSSEHub()
	calendar := services.NewWorkCalendar(cfg.Calendar.DefaultCountry)

	activityService := services.NewActivityService(db, hub)
	eventQ := services.NewEventQueue(&cfg.Redis)
	if syncQueue, ok := eventQ.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(activityService.Process)
	}

	var worker *services.Worker
	if eventQ.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(activityService.Process)
		}
	}

	systemLogService := services.NewSystemLogService(db)
	projectService := services.NewProjectService(db, calendar)
	shareLinkService := services.NewShareLinkService(db, projectService, cfg.Share)
	authService := services.NewAuthService(db, &cfg.JWT, &cfg.LDAP, services.NewLDAPService(&cfg.LDAP))

	var scheduler *services.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = services.NewScheduler(db, *cfg, systemLogService, shareLinkService)
	}

	return &appServices{
		cfg:       cfg,
		db:        db,
		hub:       hub,
		eventQ:    eventQ,
		worker:    worker,
		scheduler: scheduler,
		systemLog: systemLogService,

		authHandler:        handlers.NewAuthHandler(authService, cfg.LDAP.Enabled),
		dashboardHandler:   handlers.NewDashboardHandler(services.NewDashboardService(db, calendar), calendar),
		projectHandler:     handlers.NewProjectHandler(projectService, services.NewCategoryService(db)),
		taskHandler:        handlers.NewTaskHandler(services.NewTaskService(db)),
		dailyLogHandler:    handlers.NewDailyLogHandler(services.NewDailyLogService(db, eventQ)),
		transactionHandler: handlers.NewTransactionHandler(services.NewTransactionService(db)),
		shareLinkHandler:   handlers.NewShareLinkHandler(shareLinkService),
		mediaHandler:       handlers.NewMediaHandler(services.NewMediaService(db)),
		activityHandler:    handlers.NewActivityHandler(activityService),
		userHandler:        handlers.NewUserHandler(services.NewUserService(db)),
		systemLogHandler:   handlers.NewSystemLogHandler(systemLogService, cfg.Scheduler.LogRetentionDays),
		healthHandler:      handlers.NewHealthHandler(db, eventQ, hub),
		sseHandler:         handlers.NewSSEHandler(hub),
	}
}

// start launches the asynq worker and the cron scheduler when configured.
func (s *appServices) start() error {
	if s.worker != nil {
		if err := s.worker.Start(); err != nil {
			return err
		}
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}
	return nil
}

// shutdown gracefully stops all background work.
func (s *appServices) shutdown() {
	for _, l := range s.limiters {
		l.Stop()
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
		logger.Info().Msg("Scheduler stopped")
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.eventQ != nil {
		if err := s.eventQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close event queue")
		}
	}
}
