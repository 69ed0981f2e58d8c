package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nurhakim/campus-scheduler-api/api/swagger"
	"github.com/nurhakim/campus-scheduler-api/internal/handler"
	internalmiddleware "github.com/nurhakim/campus-scheduler-api/internal/middleware"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	"github.com/nurhakim/campus-scheduler-api/internal/repository"
	"github.com/nurhakim/campus-scheduler-api/internal/service"
	"github.com/nurhakim/campus-scheduler-api/pkg/cache"
	"github.com/nurhakim/campus-scheduler-api/pkg/config"
	"github.com/nurhakim/campus-scheduler-api/pkg/database"
	"github.com/nurhakim/campus-scheduler-api/pkg/logger"
	corsmiddleware "github.com/nurhakim/campus-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nurhakim/campus-scheduler-api/pkg/middleware/requestid"
)

// @title Campus Scheduler API
// @version 0.1.0
// @description Course timetable and exam scheduling engine for universities
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, schedule caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	professorRepo := repository.NewProfessorRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	examRepo := repository.NewExamRepository(db)
	scheduleRepo := repository.NewExamScheduleRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	locks := service.NewTenantLocks()
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	timetableSvc := service.NewTimetableService(
		courseRepo,
		professorRepo,
		classroomRepo,
		db,
		validate,
		logr,
		metricsSvc,
		service.NewRandomLunchPolicy(cfg.Timetable.LunchSeed),
		locks,
		service.TimetableConfig{
			SlotsPerDay:  cfg.Timetable.SlotsPerDay,
			DayStartHour: cfg.Timetable.DayStartHour,
		},
	)

	examSvc := service.NewExamTimetableService(
		examRepo,
		scheduleRepo,
		courseRepo,
		enrollmentRepo,
		professorRepo,
		classroomRepo,
		db,
		cacheRepo,
		validate,
		logr,
		metricsSvc,
		metricsSvc,
		locks,
		service.ExamConfig{
			SessionHours: cfg.Exams.SessionHours,
			DefaultSlots: cfg.Exams.DefaultSlots,
			CacheTTL:     cfg.Exams.ScheduleCacheTTL,
		},
	)

	exportSvc := service.NewExportService(examSvc, nil, nil, logr)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	examHandler := handler.NewExamHandler(examSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))

	writers := internalmiddleware.RequireRoles(models.RoleAdmin)
	readers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar, models.RoleProfessor)

	api.POST("/universities/:id/timetable/generate", writers, timetableHandler.Generate)
	api.POST("/universities/:id/timetable/reset", writers, timetableHandler.Reset)
	api.PUT("/courses/:id/schedule", writers, timetableHandler.UpdateCourseSchedule)

	api.POST("/exams/:id/timetable/generate", writers, examHandler.Generate)
	api.POST("/exams/:id/invigilators", writers, examHandler.AssignInvigilators)
	api.GET("/exams/:id/schedule", readers, examHandler.GetSchedule)
	api.GET("/exams/:id/schedule/export", readers, examHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
