package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/middleware"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/configwatcher"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *gorm.DB
	Redis   *redis.Client
	Log     *zap.Logger
	Level   zap.AtomicLevel
	Metrics *monitoring.Metrics

	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	assessment *repository.AssessmentRepository
	question   *repository.QuestionRepository
	submission *repository.SubmissionRepository
	course     *repository.CourseRepository
	grade      *repository.GradeRepository
	cache      repository.AssessmentCache
}

type services struct {
	assessment *service.AssessmentService
	submission *service.SubmissionService
	grade      *service.GradeService
	course     *service.CourseService
	storage    *service.StorageService
}

type controllers struct {
	assessment *controller.AssessmentController
	submission *controller.SubmissionController
	grade      *controller.GradeController
	course     *controller.CourseController
	media      *controller.MediaController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories() *repositories {
	repos := &repositories{
		assessment: repository.NewAssessmentRepository(a.DB),
		question:   repository.NewQuestionRepository(a.DB),
		submission: repository.NewSubmissionRepository(a.DB),
		course:     repository.NewCourseRepository(a.DB),
		grade:      repository.NewGradeRepository(a.DB),
		cache:      repository.NopAssessmentCache{},
	}
	if a.Redis != nil {
		repos.cache = repository.NewRedisAssessmentCache(a.Redis, a.Config.Cache.AssessmentTTL())
	}
	return repos
}

func (a *App) initServices(repos *repositories) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(&a.Config.Storage, a.Log)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	s.grade = service.NewGradeService(repos.course, repos.submission, repos.grade, a.Log)
	s.course = service.NewCourseService(repos.course, a.Log)
	s.assessment = service.NewAssessmentService(
		a.DB,
		repos.assessment,
		repos.question,
		repos.submission,
		repos.course,
		repos.cache,
		a.Log,
	)
	s.submission = service.NewSubmissionService(
		a.DB,
		repos.assessment,
		repos.question,
		repos.submission,
		repos.course,
		s.grade,
		a.Metrics,
		a.Log,
	)
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.assessment, a.Log),
		submission: controller.NewSubmissionController(s.submission, a.Log),
		grade:      controller.NewGradeController(s.grade, a.Log),
		course:     controller.NewCourseController(s.course, a.Log),
		media:      controller.NewMediaController(s.storage, a.Log),
		health:     controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(security.RequestID(util.RequestIDKey))
	router.Use(middleware.RequestLogger(a.Log))
	router.Use(security.CORS(a.Config.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(a.Metrics.Middleware())
}

// NewApp builds every component from cfg. With cfg.MigrateOnly set it stops
// after the schema migration.
func NewApp(cfg *config.Config) (*App, error) {
	log, level := logger.New(cfg)
	log.Info("Logger initialized successfully")

	app := &App{
		Config: cfg,
		Log:    log,
		Level:  level,
	}

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, log, migrate)
	if err != nil {
		log.Error("Failed to initialize database", zap.Error(err))
		return nil, err
	}
	app.DB = db
	if cfg.MigrateOnly {
		return app, nil
	}

	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := database.InitRedis(ctx, &cfg.Redis, log)
		cancel()
		if err != nil {
			log.Error("Failed to initialize redis", zap.Error(err))
			return nil, err
		}
		app.Redis = rdb
	}

	// 监控初始化
	app.Metrics = monitoring.NewMetrics(prometheus.DefaultRegisterer)
	app.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(context.Background(), &cfg.Tracing)
		if err != nil {
			log.Error("Failed to initialize tracing", zap.Error(err))
			return nil, err
		}
		app.tracer = tp
	}

	repos := app.initRepositories()
	svcs, err := app.initServices(repos)
	if err != nil {
		log.Error("Failed to initialize services", zap.Error(err))
		return nil, err
	}
	ctrls := app.initControllers(svcs)

	if err := controller.RegisterValidators(); err != nil {
		return nil, err
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	app.Router = router
	app.setupMiddlewares(router)
	app.registerRoutes(router, ctrls)

	app.RegisterConfigCallback(func(c *config.Config) {
		app.Level.SetLevel(logger.ParseLevel(c))
	})
	app.RegisterConfigCallback(func(c *config.Config) {
		app.limiter.SetLimit(c.RateLimit.MaxRequests, time.Duration(c.RateLimit.WindowMinutes)*time.Minute)
	})

	return app, nil
}

func (a *App) reloadConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	a.Log.Info("Config reloaded",
		zap.String("log_level", a.Level.String()),
		zap.Int("rate_limit", cfg.RateLimit.MaxRequests),
	)
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.limiter.Run(ctx)

	if a.Config.File != "" {
		watcher := configwatcher.New(a.Config.File, a.Log, a.reloadConfig)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				a.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.startBackgroundTasks(ctx)

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	// 启动服务器
	go func() {
		a.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.Log.Info("Shutting down server...")

	// 关闭服务（5秒超时）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)

	a.Log.Info("Server exiting")
	return nil
}

// Close releases the tracer, redis and database handles.
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.Log.Sync()
}
