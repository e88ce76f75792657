package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/acadsuite/campus-portal-api/api/swagger"
	"github.com/acadsuite/campus-portal-api/internal/handler"
	"github.com/acadsuite/campus-portal-api/internal/middleware"
	"github.com/acadsuite/campus-portal-api/internal/models"
	"github.com/acadsuite/campus-portal-api/internal/repository"
	"github.com/acadsuite/campus-portal-api/internal/service"
	"github.com/acadsuite/campus-portal-api/pkg/cache"
	"github.com/acadsuite/campus-portal-api/pkg/config"
	"github.com/acadsuite/campus-portal-api/pkg/database"
	"github.com/acadsuite/campus-portal-api/pkg/logger"
	corsmiddleware "github.com/acadsuite/campus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadsuite/campus-portal-api/pkg/middleware/requestid"
	"github.com/acadsuite/campus-portal-api/pkg/storage"
)

// @title Campus Portal API
// @version 1.0.0
// @description Role-based academic records portal for courses, attendance, assignments and materials.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	// Redis is optional. Without it the portal runs with caching disabled.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	teacherAssignmentRepo := repository.NewTeacherAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	materialRepo := repository.NewMaterialRepository(db)

	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "campus-portal-api",
	})
	scopeSvc := service.NewScopeService(teacherRepo, studentRepo, teacherAssignmentRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, semesterRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, semesterRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, userRepo, teacherAssignmentRepo, semesterRepo, subjectRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, semesterRepo, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, semesterRepo, subjectRepo, nil, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, submissionRepo, uploads, nil, logr)
	materialSvc := service.NewMaterialService(materialRepo, uploads, signer, nil, logr)
	provisioningSvc := service.NewProvisioningService(userRepo, teacherRepo, teacherAssignmentRepo, studentRepo, courseRepo, semesterRepo, cfg.Provisioning.DefaultPassword, nil, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Courses:         courseRepo,
		Subjects:        subjectRepo,
		Teachers:        teacherRepo,
		Students:        studentRepo,
		Assignments:     assignmentRepo,
		Materials:       materialRepo,
		TeacherBindings: teacherAssignmentRepo,
		Attendance:      attendanceRepo,
		AssignmentRows:  assignmentRepo,
		Cache:           cacheSvc,
		Metrics:         metricsSvc,
		CacheTTL:        cfg.Dashboard.CacheTTL,
		Logger:          logr,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc, uploads)
	userHandler := handler.NewUserHandler(provisioningSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
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
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authed := middleware.JWT(authSvc)
	scoped := middleware.Scope(scopeSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	teachers := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	students := middleware.RequireRoles(models.RoleStudent)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		auth := api.Group("/auth", authed)
		{
			auth.GET("/me", authHandler.Me)
			auth.PUT("/me", authHandler.UpdateProfile)
			auth.POST("/change-password", authHandler.ChangePassword)
		}

		api.POST("/users", authed, adminOnly,
			middleware.Audit(userRepo, models.AuditActionProvision, "users"),
			userHandler.Create)

		courses := api.Group("/courses", authed, scoped)
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.GET("/:id/semesters", courseHandler.Semesters)
			courses.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "courses"), courseHandler.Create)
			courses.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "courses"), courseHandler.Update)
			courses.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "courses"), courseHandler.Delete)
		}

		subjects := api.Group("/subjects", authed, scoped)
		{
			subjects.GET("", subjectHandler.List)
			subjects.GET("/:id", subjectHandler.Get)
			subjects.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "subjects"), subjectHandler.Create)
			subjects.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "subjects"), subjectHandler.Update)
			subjects.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "subjects"), subjectHandler.Delete)
		}

		teachersGroup := api.Group("/teachers", authed, scoped)
		{
			teachersGroup.GET("", teacherHandler.List)
			teachersGroup.GET("/:id", teacherHandler.Get)
			teachersGroup.GET("/:id/assignments", teacherHandler.Assignments)
			teachersGroup.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "teachers"), teacherHandler.Update)
			teachersGroup.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "teachers"), teacherHandler.Delete)
			teachersGroup.POST("/:id/assignments", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "teachers"), teacherHandler.Assign)
			teachersGroup.DELETE("/:id/assignments/:assignmentId", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "teachers"), teacherHandler.Unassign)
		}

		studentsGroup := api.Group("/students", authed, scoped)
		{
			studentsGroup.GET("", studentHandler.List)
			studentsGroup.GET("/:id", studentHandler.Get)
			studentsGroup.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "students"), studentHandler.Update)
			studentsGroup.POST("/:id/progress", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "students"), studentHandler.Progress)
			studentsGroup.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionWrite, "students"), studentHandler.Delete)
		}

		attendance := api.Group("/attendance", authed, scoped)
		{
			attendance.GET("", attendanceHandler.List)
			attendance.GET("/roster", teachers, attendanceHandler.Roster)
			attendance.POST("", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "attendance"), attendanceHandler.SaveRoster)
			attendance.GET("/students/:id/summary", attendanceHandler.StudentSummary)
			if cfg.Exports.Enabled {
				attendance.GET("/export", teachers, attendanceHandler.Export)
			}
		}

		assignments := api.Group("/assignments", authed, scoped)
		{
			assignments.GET("", assignmentHandler.List)
			assignments.GET("/:id", assignmentHandler.Get)
			assignments.POST("", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "assignments"), assignmentHandler.Create)
			assignments.PUT("/:id", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "assignments"), assignmentHandler.Update)
			assignments.DELETE("/:id", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "assignments"), assignmentHandler.Delete)
			assignments.GET("/:id/submissions", teachers, assignmentHandler.Submissions)
			assignments.POST("/:id/submissions", students, middleware.Audit(userRepo, models.AuditActionWrite, "submissions"), assignmentHandler.Submit)
		}

		submissions := api.Group("/submissions", authed, scoped)
		{
			submissions.GET("/mine", students, assignmentHandler.MySubmissions)
			submissions.POST("/:id/grade", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "submissions"), assignmentHandler.Grade)
		}

		materials := api.Group("/materials", authed, scoped)
		{
			materials.GET("", materialHandler.List)
			materials.GET("/:id", materialHandler.Get)
			materials.GET("/:id/download", materialHandler.DownloadLink)
			materials.POST("", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "materials"), materialHandler.Create)
			materials.PUT("/:id", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "materials"), materialHandler.Update)
			materials.DELETE("/:id", teachers, middleware.Audit(userRepo, models.AuditActionWrite, "materials"), materialHandler.Delete)
		}

		// Signed token carries authorization, so downloads skip the JWT gate.
		api.GET("/downloads/:token", materialHandler.Download)

		if cfg.Dashboard.Enabled {
			api.GET("/dashboard", authed, scoped, dashboardHandler.Get)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"cache_enabled", cacheSvc.Enabled(),
		"dashboard_ttl", cfg.Dashboard.CacheTTL.String())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
