package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campuslabs/academia-api/api/swagger"
	"github.com/campuslabs/academia-api/internal/handler"
	"github.com/campuslabs/academia-api/internal/middleware"
	"github.com/campuslabs/academia-api/internal/models"
	"github.com/campuslabs/academia-api/internal/repository"
	"github.com/campuslabs/academia-api/internal/service"
	"github.com/campuslabs/academia-api/pkg/cache"
	"github.com/campuslabs/academia-api/pkg/config"
	"github.com/campuslabs/academia-api/pkg/database"
	"github.com/campuslabs/academia-api/pkg/logger"
	corsmiddleware "github.com/campuslabs/academia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuslabs/academia-api/pkg/middleware/requestid"
)

// @title Academia API
// @version 0.1.0
// @description Enrollment, assessment and attendance engine
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional; the attendance cache degrades to pass-through.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, attendance cache disabled", "error", err)
		redisClient = nil
	}

	offeringRepo := repository.NewOfferingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT, logr)
	catalogSvc := service.NewCatalogService(offeringRepo, enrollmentRepo, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, offeringRepo, enrollmentRepo, cacheRepo, cfg.Academics, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, offeringRepo, attendanceSvc, cfg.Academics, metricsSvc, nil, logr)
	assessmentSvc := service.NewAssessmentService(assignmentRepo, submissionRepo, enrollmentRepo, offeringRepo, nil, logr)
	reportSvc := service.NewReportService(offeringRepo, attendanceRepo, enrollmentRepo, logr)

	offeringHandler := handler.NewOfferingHandler(catalogSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty, models.RoleStudent)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleFaculty), "SELF")

	offerings := api.Group("/offerings")
	{
		offerings.GET("", anyRole, offeringHandler.List)
		offerings.GET("/:id", anyRole, offeringHandler.Get)
		offerings.GET("/:id/assignments", anyRole, assessmentHandler.ListByOffering)
		offerings.GET("/:id/sessions", anyRole, attendanceHandler.ListSessions)
		offerings.GET("/:id/attendance/:studentId", staffOrSelf, attendanceHandler.Percentage)
		if cfg.Reports.Enabled {
			offerings.GET("/:id/reports/attendance-register", staff, reportHandler.AttendanceRegister)
			offerings.GET("/:id/reports/grade-sheet", staff, reportHandler.GradeSheet)
		}
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", anyRole, enrollmentHandler.List)
		enrollments.POST("", anyRole, enrollmentHandler.RequestSeat)
		enrollments.POST("/drop", anyRole, enrollmentHandler.DropSeat)
		enrollments.POST("/finalize", staff, enrollmentHandler.Finalize)
	}

	assignments := api.Group("/assignments")
	{
		assignments.POST("", staff, assessmentHandler.Create)
		assignments.POST("/:id/publish", staff, assessmentHandler.Publish)
		assignments.POST("/:id/submissions", middleware.RequireRoles(models.RoleStudent), assessmentHandler.Submit)
		assignments.GET("/:id/submissions", staff, assessmentHandler.ListSubmissions)
	}

	submissions := api.Group("/submissions")
	{
		submissions.POST("/:id/grade", staff, assessmentHandler.Grade)
		submissions.POST("/:id/return", staff, assessmentHandler.Return)
	}

	attendance := api.Group("/attendance")
	{
		attendance.POST("/sessions", staff, attendanceHandler.CreateSession)
		attendance.POST("/sessions/:id/records", staff, attendanceHandler.Mark)
		attendance.GET("/sessions/:id/report", staff, attendanceHandler.SessionReport)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
