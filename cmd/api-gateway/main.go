package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campuspulse/participation-api/api/swagger"
	"github.com/campuspulse/participation-api/internal/handler"
	"github.com/campuspulse/participation-api/internal/middleware"
	"github.com/campuspulse/participation-api/internal/repository"
	"github.com/campuspulse/participation-api/internal/service"
	"github.com/campuspulse/participation-api/pkg/cache"
	"github.com/campuspulse/participation-api/pkg/config"
	"github.com/campuspulse/participation-api/pkg/database"
	"github.com/campuspulse/participation-api/pkg/jobs"
	"github.com/campuspulse/participation-api/pkg/logger"
	corsmiddleware "github.com/campuspulse/participation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuspulse/participation-api/pkg/middleware/requestid"
	"github.com/campuspulse/participation-api/pkg/storage"
)

// @title Campus Pulse Participation API
// @version 1.0.0
// @description Participation lifecycle and reporting engine for campus events
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	collegeRepo := repository.NewCollegeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr)
	reportSvc := service.NewReportService(service.ReportServiceParams{
		Reports:       reportRepo,
		Events:        eventRepo,
		Students:      studentRepo,
		Registrations: registrationRepo,
		Attendances:   attendanceRepo,
		Feedbacks:     feedbackRepo,
		Cache:         cacheSvc,
		Logger:        logr,
		Config: service.ReportServiceConfig{
			CacheTTL:         cfg.Reports.CacheTTL,
			TopStudentsLimit: cfg.Reports.TopStudentsLimit,
		},
	})
	collegeSvc := service.NewCollegeService(collegeRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, collegeRepo, nil, logr)
	eventSvc := service.NewEventService(eventRepo, collegeRepo, reportSvc, nil, logr)
	participationSvc := service.NewParticipationService(
		participationRepo, registrationRepo, attendanceRepo, feedbackRepo,
		studentRepo, eventRepo, reportSvc, metricsSvc, nil, logr,
	)

	// Export pipeline.
	exportStorage, err := storage.NewLocalStorage(cfg.Reports.ExportDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(reportRepo, exportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)
	worker := service.NewExportWorker(reportJobRepo, exporter, metricsSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("report-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	exportJobSvc := service.NewExportJobService(reportJobRepo, queue, exporter, metricsSvc, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	exportJobSvc.RecoverPendingJobs(ctx)
	exportJobSvc.StartCleanup(ctx)

	// Handlers.
	collegeHandler := handler.NewCollegeHandler(collegeSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, reportSvc)
	eventHandler := handler.NewEventHandler(eventSvc, participationSvc, reportSvc)
	reportHandler := handler.NewReportHandler(reportSvc, exportJobSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/colleges", collegeHandler.Create)
		api.GET("/colleges", collegeHandler.List)
		api.GET("/colleges/:id", collegeHandler.Get)

		api.POST("/students", studentHandler.Create)
		api.GET("/students", studentHandler.List)
		api.GET("/students/:id", studentHandler.Get)
		api.GET("/students/:id/participation", studentHandler.Participation)

		api.POST("/events", eventHandler.Create)
		api.GET("/events", eventHandler.List)
		api.GET("/events/:id", eventHandler.Get)
		api.POST("/events/:id/cancel", eventHandler.Cancel)
		api.POST("/events/:id/register", eventHandler.Register)
		api.POST("/events/:id/attendance", eventHandler.MarkAttendance)
		api.POST("/events/:id/feedback", eventHandler.SubmitFeedback)
		api.GET("/events/:id/participation", eventHandler.ParticipationState)
		api.GET("/events/:id/report", eventHandler.AttendanceReport)

		api.GET("/reports/events/popularity", reportHandler.Popularity)
		api.GET("/reports/students/top", reportHandler.TopStudents)
		if cfg.Dashboard.Enabled {
			api.GET("/reports/dashboard", reportHandler.Dashboard)
		}
		api.POST("/reports/generate", reportHandler.GenerateReport)
		api.GET("/reports/status/:id", reportHandler.ReportStatus)
		api.GET("/reports/export/:token", reportHandler.DownloadReport)

		api.GET("/ops/metrics", metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
