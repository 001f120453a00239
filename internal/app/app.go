package app

import (
	"context"
	"fmt"
	"time"

	"subcatalog/database"
	"subcatalog/internal/cache"
	"subcatalog/internal/config"
	"subcatalog/internal/handlers"
	"subcatalog/internal/logger"
	"subcatalog/internal/middleware"
	"subcatalog/internal/notify"
	"subcatalog/internal/repositories"
	"subcatalog/internal/routes"
	"subcatalog/internal/services"
	"subcatalog/internal/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	repo := repositories.NewSubscriptionRepository(gormDB)
	if err := database.Seed(context.Background(), gormDB, repo); err != nil {
		logger.Fatal("Failed to seed subscription data", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter assembles the full gin engine. Handler tests build the engine
// through here with their own dependencies swapped in at the service seam.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	repo := repositories.NewSubscriptionRepository(gormDB)
	subscriptionService := services.NewSubscriptionService(
		repo,
		newCache(cfg),
		newNotifier(cfg),
		cfg.Email.AdminEmail,
		time.Duration(cfg.Redis.TTLMinutes)*time.Minute,
	)

	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)
	subscriptionHandler := handlers.NewSubscriptionHandler(baseHandler, subscriptionService)

	ginRouter := initializeGinRouter()
	routes.RegisterRoutes(ginRouter, subscriptionHandler)

	return ginRouter
}

// newCache prefers Redis and falls back to the in-process cache when no
// address is configured. Losing either cache never takes reads down.
func newCache(cfg *config.Config) cache.Cache {
	if cfg.Redis.Addr != "" {
		logger.Info("Using Redis cache", "addr", cfg.Redis.Addr)
		return cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}
	logger.Warn("REDIS addr not configured, using in-memory cache")
	return cache.NewMemoryCache()
}

// newNotifier uses SMTP when configured, otherwise logs the events.
func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Email.SMTPHost != "" {
		logger.Info("Using SMTP notifier", "host", cfg.Email.SMTPHost)
		return notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.FromEmail,
		})
	}
	logger.Warn("SMTP not configured, notifications go to the log")
	return notify.NewLogNotifier()
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}
