package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-mfg/internal/config"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/handler"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/bitfantasy/nimo-mfg/internal/middleware"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
	"github.com/bitfantasy/nimo-mfg/internal/shared/eventbus"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
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
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

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

	zapLogger.Info("Starting nimo-mfg service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate manufacturing tables", zap.Error(err))
	}
	if err := audit.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate audit tables", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// Redis事件总线
	rdb := initRedis(cfg.Redis)
	bus := eventbus.NewBus(rdb, zapLogger)

	// MinIO 导出归档，不可用时降级为仅下载
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("MinIO unavailable, export archiving disabled", zap.Error(err))
			minioClient = nil
		}
	}

	// 审计落库
	sink := audit.NewSink(db, zapLogger)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, bus, sink, minioClient, cfg.MinIO.ExportBucket)
	handlers := handler.NewHandlers(services)

	port := os.Getenv("MFG_PORT")
	if port == "" {
		port = fmt.Sprintf("%d", cfg.Server.Port)
	}
	if port == "0" || port == "" {
		port = "8082"
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("MFG Server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down MFG server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	// 审计队列排空后再退出
	if err := sink.Close(ctx); err != nil {
		zapLogger.Warn("Audit sink drain incomplete", zap.Error(err))
	}

	zapLogger.Info("MFG Server exited")
}

func registerRoutes(router *gin.Engine, handlers *handler.Handlers, cfg *config.Config) {
	// 健康检查
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nimo-mfg"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nimo-mfg"})
	})

	// 版本信息
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "nimo-mfg",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := router.Group("/api/v1/mfg")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 物料主数据
		items := v1.Group("/items")
		{
			items.GET("", handlers.Item.List)
			items.POST("", handlers.Item.Create)
			items.GET("/:id", handlers.Item.Get)
			items.PUT("/:id", handlers.Item.Update)
			items.DELETE("/:id", handlers.Item.Delete)
		}

		// BOM
		boms := v1.Group("/boms")
		{
			boms.GET("", handlers.BOM.List)
			boms.POST("", handlers.BOM.Create)
			boms.GET("/where-used/:itemId", handlers.BOM.WhereUsed)
			boms.GET("/:id", handlers.BOM.Get)
			boms.PUT("/:id", handlers.BOM.Update)
			boms.DELETE("/:id", handlers.BOM.Delete)
			boms.POST("/:id/submit", handlers.BOM.Submit)
			boms.POST("/:id/approve", handlers.BOM.Approve)
			boms.POST("/:id/deactivate", handlers.BOM.Deactivate)
			boms.GET("/:id/explode", handlers.BOM.Explode)
			boms.POST("/:id/cost-rollup", handlers.BOM.CostRollup)
			boms.GET("/:id/requirements", handlers.BOM.Requirements)
			boms.GET("/:id/export", handlers.BOM.Export)
		}

		// 工艺路线
		routings := v1.Group("/routings")
		{
			routings.GET("", handlers.Routing.List)
			routings.POST("", handlers.Routing.Create)
			routings.GET("/:id", handlers.Routing.Get)
			routings.PUT("/:id", handlers.Routing.Update)
			routings.DELETE("/:id", handlers.Routing.Delete)
			routings.POST("/:id/submit", handlers.Routing.Submit)
			routings.POST("/:id/approve", handlers.Routing.Approve)
			routings.POST("/:id/deactivate", handlers.Routing.Deactivate)
		}

		// 工序主数据
		operations := v1.Group("/operations")
		{
			operations.GET("", handlers.Operation.List)
			operations.POST("", handlers.Operation.Create)
			operations.GET("/:id", handlers.Operation.Get)
			operations.PUT("/:id", handlers.Operation.Update)
			operations.DELETE("/:id", handlers.Operation.Delete)
		}

		// 生产工单
		workOrders := v1.Group("/work-orders")
		{
			workOrders.GET("", handlers.WorkOrder.List)
			workOrders.POST("", handlers.WorkOrder.Create)
			workOrders.GET("/:id", handlers.WorkOrder.Get)
			workOrders.PUT("/:id", handlers.WorkOrder.Update)
			workOrders.DELETE("/:id", handlers.WorkOrder.Delete)
			workOrders.POST("/:id/submit", handlers.WorkOrder.Submit)
			workOrders.POST("/:id/release", handlers.WorkOrder.Release)
			workOrders.POST("/:id/start", handlers.WorkOrder.Start)
			workOrders.POST("/:id/hold", handlers.WorkOrder.Hold)
			workOrders.POST("/:id/resume", handlers.WorkOrder.Resume)
			workOrders.POST("/:id/complete", handlers.WorkOrder.Complete)
			workOrders.POST("/:id/close", handlers.WorkOrder.Close)
			workOrders.POST("/:id/cancel", handlers.WorkOrder.Cancel)
			workOrders.PUT("/:id/progress", handlers.WorkOrder.Progress)
		}

		// 生产报工
		entries := v1.Group("/production-entries")
		{
			entries.GET("", handlers.ProductionEntry.List)
			entries.POST("", handlers.ProductionEntry.Create)
			entries.GET("/:id", handlers.ProductionEntry.Get)
			entries.PUT("/:id", handlers.ProductionEntry.Update)
			entries.DELETE("/:id", handlers.ProductionEntry.Delete)
			entries.POST("/:id/submit", handlers.ProductionEntry.Submit)
			entries.POST("/:id/consume-materials", handlers.ProductionEntry.ConsumeMaterials)
			entries.POST("/:id/post", handlers.ProductionEntry.Post)
			entries.POST("/:id/reverse", handlers.ProductionEntry.Reverse)
		}
	}
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
		Logger: logger.Default.LogMode(logger.Info),
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
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
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
