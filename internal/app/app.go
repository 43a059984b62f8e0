package app

import (
	"assessly_backend/internal/config"
	"assessly_backend/internal/controller"
	"assessly_backend/internal/repository"
	"assessly_backend/internal/service"
	"assessly_backend/pkg/cache"
	"assessly_backend/pkg/database"
	"assessly_backend/pkg/logger"
	"assessly_backend/pkg/monitoring"
	"assessly_backend/pkg/security"
	"assessly_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user       *repository.UserRepository
	assessment *repository.AssessmentRepository
	submission *repository.SubmissionRepository
	proctoring *repository.ProctoringRepository
}

type services struct {
	user       *service.UserService
	assessment *service.AssessmentService
	submission *service.SubmissionService
	grading    *service.GradingService
	proctoring *service.ProctoringService
	storage    *service.StorageService
}

type controllers struct {
	auth       *controller.AuthController
	assessment *controller.AssessmentController
	submission *controller.SubmissionController
	grading    *controller.GradingController
	proctoring *controller.ProctoringController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB, cfg *config.Config) *repositories {
	caps := repository.DetectCapabilities(db)
	logger.Log.Info("schema capabilities resolved",
		zap.Bool("submission_meta", caps.SubmissionMeta),
		zap.Bool("response_grading", caps.ResponseGrading),
		zap.Bool("access_logs", caps.AccessLogs))

	submission := repository.NewSubmissionRepository(db, caps)
	submission.RetryDelay = time.Duration(cfg.Assessment.AttemptRetryDelayMs) * time.Millisecond

	return &repositories{
		user:       repository.NewUserRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		submission: submission,
		proctoring: repository.NewProctoringRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	resultCache := cache.New(rdb, time.Duration(cfg.Assessment.ResultCacheTTLMin)*time.Minute)

	s := &services{}
	s.storage = service.NewStorageService(cfg)
	s.user = service.NewUserService(repos.user, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	s.assessment = service.NewAssessmentService(repos.assessment)
	s.submission = service.NewSubmissionService(repos.assessment, repos.submission, resultCache, &cfg.Assessment)
	s.grading = service.NewGradingService(repos.assessment, repos.submission, resultCache, float64(cfg.Assessment.DefaultTotalPoints))
	s.proctoring = service.NewProctoringService(repos.proctoring, repos.submission)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.user),
		assessment: controller.NewAssessmentController(s.assessment),
		submission: controller.NewSubmissionController(s.submission, s.storage),
		grading:    controller.NewGradingController(s.grading),
		proctoring: controller.NewProctoringController(s.proctoring),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// The cache layer degrades to pass-through without Redis.
		logger.Log.Warn("Redis unavailable, caching disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, cfg)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("assessly-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// ApplyConfig hot-reloads the runtime-tunable sections. Services hold a
// pointer into a.Config.Assessment, so an in-place overwrite propagates.
func (a *App) ApplyConfig(newCfg *config.Config) {
	a.Config.Assessment = newCfg.Assessment
	logger.Log.Info("assessment tuning reloaded",
		zap.Int("grace_period_seconds", newCfg.Assessment.GracePeriodSeconds),
		zap.Int("result_cache_ttl_minutes", newCfg.Assessment.ResultCacheTTLMin))
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
