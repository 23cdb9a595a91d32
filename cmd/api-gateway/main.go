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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/brightclass/brightclass-api/api/swagger"
	"github.com/brightclass/brightclass-api/internal/handler"
	"github.com/brightclass/brightclass-api/internal/middleware"
	"github.com/brightclass/brightclass-api/internal/models"
	"github.com/brightclass/brightclass-api/internal/repository"
	"github.com/brightclass/brightclass-api/internal/service"
	"github.com/brightclass/brightclass-api/pkg/cache"
	"github.com/brightclass/brightclass-api/pkg/config"
	"github.com/brightclass/brightclass-api/pkg/database"
	"github.com/brightclass/brightclass-api/pkg/logger"
	corsmiddleware "github.com/brightclass/brightclass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/brightclass/brightclass-api/pkg/middleware/requestid"
	"github.com/brightclass/brightclass-api/pkg/storage"
)

// @title BrightClass API
// @version 1.0.0
// @description School finance and attendance platform
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsService := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	feeCategoryRepo := repository.NewFeeCategoryRepository(db)
	feePricingRepo := repository.NewFeePricingRepository(db)
	generatedFeeRepo := repository.NewGeneratedFeeRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Redis is optional; a failed connection only disables the read caches.
	cacheEnabled := cfg.Cache.Enabled
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheEnabled = false
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.RosterTTL, logr, cacheEnabled)

	// Services.
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "brightclass-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	schoolService := service.NewSchoolService(schoolRepo, validate, logr)
	classService := service.NewClassService(classRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, cacheService, cfg.Cache.RosterTTL, validate, logr)
	feeCatalogService := service.NewFeeCatalogService(feeCategoryRepo, feePricingRepo, validate, logr)
	feeService := service.NewFeeService(feePricingRepo, schoolRepo, studentRepo, generatedFeeRepo, userRepo, validate, logr, service.FeeQueueConfig{
		Workers:    2,
		MaxRetries: 3,
	})
	paymentService := service.NewPaymentService(paymentRepo, studentRepo, schoolRepo, classRepo, generatedFeeRepo, userRepo, cacheService, cfg.Cache.SummaryTTL, validate, logr)
	expenseService := service.NewExpenseService(expenseRepo, validate, logr)
	holidayService := service.NewHolidayService(holidayRepo, validate, logr)

	var reportService *service.ReportService
	if cfg.Reports.Enabled {
		reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportService = service.NewReportService(reportRepo, paymentRepo, attendanceRepo, reportStorage, signer, validate, logr, service.ReportServiceConfig{
			Workers:         cfg.Reports.WorkerConcurrency,
			MaxRetries:      cfg.Reports.WorkerRetries,
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feeService.Start(ctx)
	defer feeService.Stop()
	if reportService != nil {
		reportService.Start(ctx)
		defer reportService.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	schoolHandler := handler.NewSchoolHandler(schoolService)
	classHandler := handler.NewClassHandler(classService)
	studentHandler := handler.NewStudentHandler(studentService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	feeCatalogHandler := handler.NewFeeCatalogHandler(feeCatalogService)
	feeHandler := handler.NewFeeHandler(feeService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	holidayHandler := handler.NewHolidayHandler(holidayService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	superadmin := string(models.RoleSuperAdmin)
	admin := string(models.RoleAdmin)
	cashier := string(models.RoleCashier)
	teacher := string(models.RoleTeacher)

	v1 := r.Group(cfg.APIPrefix)

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		session := auth.Group("", middleware.JWT(authService))
		session.POST("/logout", authHandler.Logout)
		session.POST("/change-password", authHandler.ChangePassword)
		session.GET("/me", authHandler.Me)
	}

	api := v1.Group("", middleware.JWT(authService))
	{
		schools := api.Group("/schools")
		{
			schools.GET("", middleware.RBAC(superadmin), schoolHandler.List)
			schools.POST("", middleware.RBAC(superadmin), schoolHandler.Create)
			schools.GET("/settings", schoolHandler.Settings)
			schools.PUT("/settings", middleware.RBAC(superadmin, admin), schoolHandler.UpdateSettings)
			schools.GET("/:id", middleware.RBAC(superadmin, admin), schoolHandler.Get)
			schools.PUT("/:id", middleware.RBAC(superadmin), schoolHandler.Update)
		}

		users := api.Group("/users", middleware.RBAC(superadmin, admin))
		{
			users.GET("", userHandler.List)
			users.POST("", middleware.Audit(userRepo, models.AuditActionUserCreate, "users"), userHandler.Create)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", middleware.Audit(userRepo, models.AuditActionUserUpdate, "users"), userHandler.Update)
			users.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionUserDelete, "users"), userHandler.Deactivate)
		}

		classes := api.Group("/classes")
		{
			classes.GET("", classHandler.ListClasses)
			classes.POST("", middleware.RBAC(superadmin, admin), classHandler.CreateClass)
			classes.GET("/:id", classHandler.GetClass)
			classes.PUT("/:id", middleware.RBAC(superadmin, admin), classHandler.UpdateClass)
			classes.GET("/:id/sections", classHandler.ListSections)
		}

		sections := api.Group("/sections", middleware.RBAC(superadmin, admin))
		{
			sections.POST("", classHandler.CreateSection)
			sections.PUT("/:id", classHandler.UpdateSection)
		}

		students := api.Group("/students")
		{
			students.GET("", studentHandler.List)
			students.POST("", middleware.RBAC(superadmin, admin), studentHandler.Create)
			students.GET("/:id", studentHandler.Get)
			students.PUT("/:id", middleware.RBAC(superadmin, admin), studentHandler.Update)
			students.DELETE("/:id", middleware.RBAC(superadmin, admin), studentHandler.Deactivate)
		}

		attendance := api.Group("/attendance")
		{
			attendance.POST("/bulk", middleware.RBAC(superadmin, admin, teacher), attendanceHandler.BulkMark)
			attendance.GET("/students/:classId/:sectionId", attendanceHandler.Roster)
			attendance.GET("", attendanceHandler.List)
		}

		catalog := api.Group("")
		{
			catalog.GET("/fee-categories", feeCatalogHandler.ListCategories)
			catalog.POST("/fee-categories", middleware.RBAC(superadmin, admin), feeCatalogHandler.CreateCategory)
			catalog.PUT("/fee-categories/:id", middleware.RBAC(superadmin, admin), feeCatalogHandler.UpdateCategory)

			catalog.GET("/class-pricing", feeCatalogHandler.ListClassPricing)
			catalog.POST("/class-pricing", middleware.RBAC(superadmin, admin), feeCatalogHandler.CreateClassPricing)
			catalog.PUT("/class-pricing/:id", middleware.RBAC(superadmin, admin), feeCatalogHandler.UpdateClassPricing)

			catalog.GET("/area-pricing", feeCatalogHandler.ListAreaPricing)
			catalog.POST("/area-pricing", middleware.RBAC(superadmin, admin), feeCatalogHandler.CreateAreaPricing)
			catalog.PUT("/area-pricing/:id", middleware.RBAC(superadmin, admin), feeCatalogHandler.UpdateAreaPricing)

			catalog.GET("/areas", feeCatalogHandler.ListAreas)
			catalog.POST("/areas", middleware.RBAC(superadmin, admin), feeCatalogHandler.CreateArea)
		}

		fees := api.Group("/fees", middleware.RBAC(superadmin, admin, cashier))
		{
			fees.POST("/resolve", feeHandler.Resolve)
			fees.POST("/generate", feeHandler.Generate)
			fees.POST("/generate-class", feeHandler.GenerateClass)
			fees.GET("", feeHandler.List)
			fees.GET("/:id", feeHandler.Get)
		}

		payments := api.Group("/payments", middleware.RBAC(superadmin, admin, cashier))
		{
			payments.POST("", paymentHandler.Record)
			payments.GET("", paymentHandler.List)
			payments.GET("/summary", paymentHandler.Summary)
			payments.GET("/:id", paymentHandler.Get)
			payments.PUT("/:id/verify", paymentHandler.Verify)
			payments.GET("/:id/receipt", paymentHandler.Receipt)
		}

		expenses := api.Group("", middleware.RBAC(superadmin, admin, cashier))
		{
			expenses.GET("/expense-categories", expenseHandler.ListCategories)
			expenses.POST("/expense-categories", expenseHandler.CreateCategory)
			expenses.GET("/expenses", expenseHandler.List)
			expenses.POST("/expenses", expenseHandler.Create)
			expenses.PUT("/expenses/:id", expenseHandler.Update)
			expenses.DELETE("/expenses/:id", expenseHandler.Delete)
		}

		api.GET("/system/metrics", middleware.RBAC(superadmin), metricsHandler.Snapshot)

		holidays := api.Group("/holidays")
		{
			holidays.GET("", holidayHandler.List)
			holidays.POST("", middleware.RBAC(superadmin, admin), holidayHandler.Create)
			holidays.DELETE("/:id", middleware.RBAC(superadmin, admin), holidayHandler.Delete)
		}

		if reportService != nil {
			reportHandler := handler.NewReportHandler(reportService)
			reports := api.Group("/reports", middleware.RBAC(superadmin, admin, cashier))
			{
				reports.POST("", reportHandler.Create)
				reports.GET("/:id", reportHandler.Status)
			}
			// The token is the credential; no JWT on the download path.
			v1.GET("/reports/download/:token", reportHandler.Download)
		}
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
