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

	_ "github.com/trainhub/enroll-api/api/swagger"
	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/handler"
	"github.com/trainhub/enroll-api/internal/middleware"
	"github.com/trainhub/enroll-api/internal/repository"
	"github.com/trainhub/enroll-api/internal/service"
	"github.com/trainhub/enroll-api/pkg/cache"
	"github.com/trainhub/enroll-api/pkg/config"
	"github.com/trainhub/enroll-api/pkg/database"
	"github.com/trainhub/enroll-api/pkg/logger"
	corsmiddleware "github.com/trainhub/enroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/trainhub/enroll-api/pkg/middleware/requestid"
	"github.com/trainhub/enroll-api/pkg/storage"
)

// @title Training Platform Enrollment API
// @version 1.0.0
// @description Course enrollment backend with role-based access control
// @BasePath /api
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional: without it the stats cache degrades to no-op.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	courseService := service.NewCourseService(courseRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, userRepo, courseRepo, validate, logr)
	statsService := service.NewStatsService(userRepo, courseRepo, enrollmentRepo, cacheRepo, metricsService, logr, service.StatsConfig{
		CacheEnabled: cfg.Stats.CacheEnabled,
		CacheTTL:     cfg.Stats.CacheTTL,
	})

	var archiveService *service.ReportArchiveService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.Dir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Exports.URLTTL)
		archiveService = service.NewReportArchiveService(store, signer, logr)
	}

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	courseHandler := handler.NewCourseHandler(courseService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	statsHandler := handler.NewStatsHandler(statsService, archiveService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Config{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authn := middleware.JWT(authService)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authn, authHandler.Logout)
		auth.POST("/change-password", authn, authHandler.ChangePassword)
		auth.GET("/me", authn, authHandler.Me)
	}

	users := api.Group("/users", authn)
	{
		users.GET("", middleware.RequireRoles(domain.RoleAdmin), userHandler.List)
		users.GET("/:id", middleware.RBAC(string(domain.RoleAdmin), middleware.AllowSelf), userHandler.Get)
		users.PUT("/:id", middleware.RBAC(string(domain.RoleAdmin), middleware.AllowSelf), userHandler.Update)
		users.PATCH("/:id/role", middleware.RequireRoles(domain.RoleAdmin), userHandler.ChangeRole)
		users.DELETE("/:id", middleware.RBAC(string(domain.RoleAdmin), middleware.AllowSelf), userHandler.Delete)
	}

	courses := api.Group("/courses", authn)
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RequireRoles(domain.RoleAdmin, domain.RoleTrainer), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireRoles(domain.RoleAdmin, domain.RoleTrainer), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(domain.RoleAdmin, domain.RoleTrainer), courseHandler.Delete)
		courses.POST("/:id/enrollments/cancel", middleware.RequireRoles(domain.RoleAdmin), enrollmentHandler.CancelAllByCourse)
	}

	enrollments := api.Group("/enrollments", authn)
	{
		enrollments.POST("", middleware.RequireRoles(domain.RoleParticipant), enrollmentHandler.Enroll)
		enrollments.GET("", enrollmentHandler.List)
		enrollments.GET("/my-courses", enrollmentHandler.MyCourses)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.DELETE("/:id", enrollmentHandler.Cancel)
		enrollments.POST("/:id/cancel", middleware.RequireRoles(domain.RoleAdmin, domain.RoleTrainer), enrollmentHandler.CancelForUser)
	}

	admin := api.Group("/admin", authn, middleware.RequireRoles(domain.RoleAdmin))
	{
		admin.GET("/stats", statsHandler.Platform)
		if cfg.Exports.Enabled {
			admin.GET("/reports/enrollments.csv", statsHandler.ExportCSV)
			admin.GET("/reports/enrollments.pdf", statsHandler.ExportPDF)
			admin.GET("/reports/download", statsHandler.DownloadArchived)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if archiveService != nil {
		archiveService.Start(ctx)
		defer archiveService.Stop()
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
		return
	}
	logr.Sugar().Infow("server stopped")
}
