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

	_ "github.com/noah-isme/site-requisition-api/api/swagger"
	"github.com/noah-isme/site-requisition-api/internal/handler"
	internalmiddleware "github.com/noah-isme/site-requisition-api/internal/middleware"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/repository"
	"github.com/noah-isme/site-requisition-api/internal/service"
	"github.com/noah-isme/site-requisition-api/migrations"
	"github.com/noah-isme/site-requisition-api/pkg/cache"
	"github.com/noah-isme/site-requisition-api/pkg/config"
	"github.com/noah-isme/site-requisition-api/pkg/database"
	"github.com/noah-isme/site-requisition-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/site-requisition-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/site-requisition-api/pkg/middleware/requestid"
)

// @title Site Requisition API
// @version 0.1.0
// @description Site material requisition, approval and stock ledger service
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(db, migrations.FS); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	metricsService := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	requisitionRepo := repository.NewRequisitionRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	stockRepo := repository.NewStockRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authService := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "site-requisition-api",
	})
	catalogService := service.NewCatalogService(catalogRepo, userRepo, cacheService, logr)
	auditService := service.NewAuditService(auditRepo, approvalRepo, logr)
	requisitionService := service.NewRequisitionService(requisitionRepo, userRepo, catalogRepo, validate, logr)
	approvalService := service.NewApprovalService(requisitionRepo, metricsService, validate, logr)
	issuanceService := service.NewIssuanceService(stockRepo, requisitionRepo, auditRepo, cacheService, metricsService, validate, logr)
	receiptService := service.NewReceiptService(requisitionRepo, auditRepo, metricsService, validate, logr)
	stockService := service.NewStockService(stockRepo, catalogRepo, auditRepo, cacheService, metricsService, cfg.Stock.DefaultLowStockThreshold, validate, logr)

	authHandler := handler.NewAuthHandler(authService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	requisitionHandler := handler.NewRequisitionHandler(requisitionService, approvalService, issuanceService, receiptService)
	stockHandler := handler.NewStockHandler(stockService)
	metricsHandler := handler.NewMetricsHandler(metricsService)
	auditHandler := handler.NewAuditHandler(auditService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authService))

	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/logout-all", authHandler.LogoutAll)
	secured.GET("/auth/me", authHandler.Me)

	secured.GET("/catalog/materials", catalogHandler.Materials)
	secured.GET("/catalog/units", catalogHandler.Units)
	secured.GET("/catalog/stores", catalogHandler.Stores)
	secured.GET("/catalog/sites", catalogHandler.Sites)
	secured.GET("/catalog/sites/:id/assignments", catalogHandler.SiteAssignments)

	requisitions := secured.Group("/requisitions")
	requisitions.GET("", requisitionHandler.List)
	requisitions.GET("/:id", requisitionHandler.Get)
	requisitions.GET("/:id/approvals", auditHandler.Approvals)
	requisitions.POST("", internalmiddleware.RequireRoles(models.RoleSiteEngineer), requisitionHandler.Create)
	requisitions.POST("/:id/submit", internalmiddleware.RequireRoles(models.RoleSiteEngineer), requisitionHandler.Submit)
	requisitions.POST("/:id/approve", internalmiddleware.RequireRoles(models.RoleDSE, models.RolePadiri), requisitionHandler.Approve)
	requisitions.POST("/:id/reject", internalmiddleware.RequireRoles(models.RoleDSE, models.RolePadiri), requisitionHandler.Reject)
	requisitions.POST("/:id/modify", internalmiddleware.RequireRoles(models.RolePadiri), requisitionHandler.Modify)
	requisitions.POST("/:id/issue", internalmiddleware.RequireRoles(models.RoleStorekeeper), requisitionHandler.Issue)
	requisitions.POST("/:id/receive", internalmiddleware.RequireRoles(models.RoleSiteEngineer), requisitionHandler.Receive)

	stock := secured.Group("/stock")
	stock.GET("", stockHandler.List)
	stock.GET("/alerts", stockHandler.Alerts)
	stock.GET("/movements", stockHandler.Movements)
	stock.POST("/entries", internalmiddleware.RequireRoles(models.RoleStorekeeper), stockHandler.Entry)
	stock.POST("/adjust", internalmiddleware.RequireRoles(models.RoleStorekeeper), stockHandler.Adjust)
	stock.PUT("/:id/threshold", internalmiddleware.RequireRoles(models.RoleStorekeeper), stockHandler.SetThreshold)
	stock.POST("/:id/acknowledge", internalmiddleware.RequireRoles(models.RoleStorekeeper), stockHandler.AcknowledgeAlert)

	admin := secured.Group("/admin", internalmiddleware.RequireRoles(models.RoleAdmin))
	admin.GET("/metrics", metricsHandler.Snapshot)
	admin.GET("/audit-logs", auditHandler.Logs)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	logr.Sugar().Infow("server stopped")
}
