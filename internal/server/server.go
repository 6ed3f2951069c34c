// Package server assembles the gin router and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobsearch-hub/internal/config"
	"github.com/justsurfingit/jobsearch-hub/internal/handlers"
	"github.com/justsurfingit/jobsearch-hub/internal/middleware"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
	"gorm.io/gorm"
)

// Deps are the services behind the API.
type Deps struct {
	DB            *gorm.DB
	Jobs          *services.JobService
	Goals         *services.GoalService
	Automations   *services.AutomationService
	Runner        handlers.AutomationRunner
	References    *services.ReferenceService
	Notifications *services.NotificationService

	// Extractor serves POST /jobs/extract when set.
	Extractor services.JobExtractor

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewDeps builds every service on top of db. summarizer may be nil.
func NewDeps(db *gorm.DB, log *slog.Logger, runner handlers.AutomationRunner, summarizer services.ReferenceSummarizer) *Deps {
	return &Deps{
		DB:            db,
		Jobs:          services.NewJobService(db, log),
		Goals:         services.NewGoalService(db, log),
		Automations:   services.NewAutomationService(db, log),
		Runner:        runner,
		References:    services.NewReferenceService(db, log, summarizer),
		Notifications: services.NewNotificationService(db, log),
	}
}

// NewRouter wires middleware and routes.
func NewRouter(cfg *config.Config, deps *Deps, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Metrics(),
	)

	corsConfig := cors.DefaultConfig()
	if cfg.AllowAllOrigins() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	r.Use(cors.New(corsConfig))

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	health := handlers.NewHealthHandler(deps.DB)
	jobHandler := handlers.NewJobHandler(deps.Jobs, deps.Extractor)
	goalHandler := handlers.NewGoalHandler(deps.Goals)
	automationHandler := handlers.NewAutomationHandler(deps.Automations, deps.Runner)
	referenceHandler := handlers.NewReferenceHandler(deps.References)
	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		api.GET("/health", health.HealthCheck)

		// Job Routes
		api.POST("/jobs/extract", jobHandler.ParseJob)
		api.POST("/jobs", jobHandler.CreateJob)
		api.GET("/jobs", jobHandler.ListJobs)
		api.GET("/jobs/:id", jobHandler.GetJob)
		api.PUT("/jobs/:id", jobHandler.UpdateJob)
		api.DELETE("/jobs/:id", jobHandler.DeleteJob)
		api.GET("/jobs/:id/events", jobHandler.ListEvents)

		// Goal Routes
		api.POST("/goals", goalHandler.CreateGoal)
		api.GET("/goals", goalHandler.ListGoals)
		api.GET("/goals/:id", goalHandler.GetGoal)
		api.PUT("/goals/:id", goalHandler.UpdateGoal)
		api.DELETE("/goals/:id", goalHandler.DeleteGoal)
		api.POST("/goals/:id/milestones", goalHandler.AddMilestone)
		api.PUT("/goals/:id/milestones/:milestoneId", goalHandler.UpdateMilestone)
		api.DELETE("/goals/:id/milestones/:milestoneId", goalHandler.DeleteMilestone)
		api.POST("/goals/:id/milestones/:milestoneId/toggle", goalHandler.ToggleMilestone)
		api.GET("/insights/goals", goalHandler.Insights)

		// Automation Routes
		api.POST("/automations", automationHandler.CreateRule)
		api.GET("/automations", automationHandler.ListRules)
		api.POST("/automations/run", automationHandler.RunNow)
		api.GET("/automations/:id", automationHandler.GetRule)
		api.PUT("/automations/:id", automationHandler.UpdateRule)
		api.DELETE("/automations/:id", automationHandler.DeleteRule)
		api.POST("/automations/:id/retry", automationHandler.RetryRule)

		// Reference Routes
		api.POST("/references", referenceHandler.CreateReference)
		api.GET("/references", referenceHandler.ListReferences)
		api.POST("/references/portfolio", referenceHandler.Portfolio)
		api.GET("/references/:id", referenceHandler.GetReference)
		api.PUT("/references/:id", referenceHandler.UpdateReference)
		api.DELETE("/references/:id", referenceHandler.DeleteReference)
		api.POST("/references/:id/contacts", referenceHandler.AddContact)

		// Notification Routes
		api.GET("/notifications", notificationHandler.ListNotifications)
		api.PUT("/notifications/:id/read", notificationHandler.MarkRead)
	}

	return r
}

// Server is the HTTP server for the API.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

func New(addr string, handler http.Handler, log *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
		log: log,
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		s.log.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.log.Info("shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
