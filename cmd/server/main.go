package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyann2003/cbgift/internal/config"
	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/handler"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/internal/gift/service"
	"github.com/dyann2003/cbgift/internal/middleware"
	"github.com/dyann2003/cbgift/internal/scheduler"
	"github.com/dyann2003/cbgift/internal/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting cbgift service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化文件存储（未配置时降级，只影响上传接口）
	var store *storage.FileStore
	if cfg.MinIO.Endpoint != "" {
		store, err = storage.NewFileStore(cfg.MinIO)
		if err != nil {
			zapLogger.Fatal("Failed to init file store", zap.Error(err))
		}
		if err := store.EnsureBucket(context.Background()); err != nil {
			zapLogger.Fatal("Failed to ensure bucket", zap.Error(err))
		}
	} else {
		zapLogger.Warn("File store not configured, uploads disabled")
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, db, zapLogger)
	handlers := handler.NewHandlers(services, store)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 定时任务
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	if cfg.Scheduler.Enabled {
		startScheduler(schedCtx, cfg.Scheduler, services, zapLogger)
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	schedCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// startScheduler 每日排产 + 每月卖家结算
func startScheduler(ctx context.Context, cfg config.SchedulerConfig, svc *service.Services, zapLogger *zap.Logger) {
	sched := scheduler.New(scheduler.SystemClock(), zapLogger)

	// 夜间运行，排第二天的生产计划
	sched.AddDaily("daily-grouping", cfg.GroupingHour, cfg.GroupingMinute, func(ctx context.Context) error {
		target := time.Now().AddDate(0, 0, 1)
		report, err := svc.Planner.GroupSubmitted(ctx, target, "scheduler")
		if err != nil {
			return err
		}
		zapLogger.Info("Daily grouping finished",
			zap.String("date", report.TargetDate),
			zap.Int("claimed", report.TotalClaimed),
			zap.Bool("locked", report.Locked))
		return nil
	})

	// 结算上一个自然月
	sched.AddMonthly("monthly-invoicing", cfg.InvoiceDay, cfg.InvoiceHour, cfg.InvoiceMinute, func(ctx context.Context) error {
		prev := time.Now().AddDate(0, -1, 0)
		created, err := svc.Invoice.RunMonthly(ctx, prev.Year(), prev.Month())
		if err != nil {
			return err
		}
		zapLogger.Info("Monthly invoicing finished",
			zap.Int("year", prev.Year()),
			zap.Int("month", int(prev.Month())),
			zap.Int("created", created))
		return nil
	})

	go sched.Start(ctx)
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 订单管理
			orders := authorized.Group("/orders")
			{
				orders.GET("", h.Order.List)
				orders.POST("", h.Order.Create)
				orders.GET("/:id", h.Order.Get)
				orders.POST("/:id/approve-shipping", h.Order.ApproveShipping)
			}

			// 订单明细
			details := authorized.Group("/order-details")
			{
				details.PUT("/:detailId/status", h.Order.UpdateDetailStatus)
				details.GET("/:detailId/history", h.Order.StatusHistory)
			}

			// 生产计划
			plan := authorized.Group("/plan")
			{
				plan.POST("/group-submitted", h.Plan.GroupSubmitted)
				plan.PUT("/update-status/:planDetailId", h.Plan.UpdateStatus)
				plan.POST("/details/:planDetailId/qc-check", h.Plan.RecordQCCheck)
				plan.GET("/production-view", h.Plan.ProductionView)
				plan.GET("/production-view/export", h.Plan.ExportProductionView)
			}

			// 售后申请
			requests := authorized.Group("/requests")
			{
				requests.GET("", h.Request.List)
				requests.POST("", h.Request.Create)
				requests.GET("/:id", h.Request.Get)
				requests.POST("/:id/review", middleware.RequireRole("reviewer"), h.Request.Review)
			}

			// 卖家结算
			invoices := authorized.Group("/invoices")
			{
				invoices.GET("", h.Invoice.List)
				invoices.POST("/run", middleware.RequireRole("finance"), h.Invoice.Run)
				invoices.GET("/:id/export", h.Invoice.Export)
			}

			// 文件上传
			authorized.POST("/files/upload", h.File.Upload)
		}
	}
}
