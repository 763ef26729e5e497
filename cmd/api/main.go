package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/wlwcreche/creche-api/api/swagger"
	"github.com/wlwcreche/creche-api/internal/handler"
	"github.com/wlwcreche/creche-api/internal/middleware"
	"github.com/wlwcreche/creche-api/internal/repository"
	"github.com/wlwcreche/creche-api/internal/service"
	"github.com/wlwcreche/creche-api/pkg/cache"
	"github.com/wlwcreche/creche-api/pkg/config"
	"github.com/wlwcreche/creche-api/pkg/database"
	"github.com/wlwcreche/creche-api/pkg/identity"
	"github.com/wlwcreche/creche-api/pkg/jobs"
	"github.com/wlwcreche/creche-api/pkg/logger"
	"github.com/wlwcreche/creche-api/pkg/mailer"
	corsmiddleware "github.com/wlwcreche/creche-api/pkg/middleware/cors"
	reqidmiddleware "github.com/wlwcreche/creche-api/pkg/middleware/requestid"
)

// @title Crèche WLW API
// @version 1.0.0
// @description Backend for the Crèche WLW management platform
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	mail, err := mailer.New(ctx, cfg.Mail, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init mailer", "error", err)
	}
	idp := identity.NewSupabase(cfg.Identity, logr)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	classRepo := repository.NewClassRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	provisioningRepo := repository.NewProvisioningRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	summaryRepo := repository.NewDailySummaryRepository(db)
	journalRepo := repository.NewClassJournalRepository(db)
	eventRepo := repository.NewEventRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "creche-api",
	})
	accessService := service.NewAccessService(assignmentRepo, familyRepo, childRepo, logr)
	userService := service.NewUserService(userRepo, idp, mail, validate, logr)
	familyService := service.NewFamilyService(familyRepo, childRepo, logr)
	classService := service.NewClassService(classRepo, childRepo, assignmentRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, provisioningRepo, userRepo, classRepo, idp, mail, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, childRepo, accessService, validate, logr)
	menuService := service.NewMenuService(menuRepo, cacheRepo, cfg.Cache.MenuTTL, validate, logr)
	summaryService := service.NewDailySummaryService(summaryRepo, childRepo, accessService, validate, logr)
	journalService := service.NewClassJournalService(journalRepo, classRepo, accessService, mail, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, validate, logr)
	eventService := service.NewEventService(eventRepo, validate, logr)
	parentService := service.NewParentService(familyRepo, userRepo, childRepo, attendanceRepo, summaryRepo, journalRepo, menuRepo, eventRepo, cacheRepo, cfg.Cache.DashboardTTL, validate, logr)
	exportService := service.NewExportService(enrollmentRepo, attendanceRepo, logr)
	metricsService := service.NewMetricsService()

	if cfg.Notifications.Enabled {
		journalService.StartQueue(ctx)
		defer journalService.StopQueue()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router := &handler.Router{
		Auth:        handler.NewAuthHandler(authService),
		Enrollments: handler.NewEnrollmentHandler(enrollmentService, exportService, metricsService),
		Users:       handler.NewUserHandler(userService),
		Classes:     handler.NewClassHandler(classService),
		Families:    handler.NewFamilyHandler(familyService),
		Attendance:  handler.NewAttendanceHandler(attendanceService, exportService),
		Summaries:   handler.NewDailySummaryHandler(summaryService),
		Journals:    handler.NewClassJournalHandler(journalService, metricsService),
		Menus:       handler.NewMenuHandler(menuService),
		Events:      handler.NewEventHandler(eventService),
		Parent:      handler.NewParentHandler(parentService),

		AuthService: authService,
		Access:      accessService,
		AuditRepo:   userRepo,
	}
	router.Register(r, cfg.APIPrefix)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
