package main

import (
	"context"
	"log"
	"time"

	_ "docapproval/api/swagger" // swagger docs
	"docapproval/internal/approval"
	"docapproval/internal/config"
	"docapproval/internal/database"
	"docapproval/internal/handler"
	"docapproval/internal/logger"
	"docapproval/internal/middleware"
	"docapproval/internal/repository"
	"docapproval/internal/service"
	"docapproval/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Document Approval API
// @version         1.0
// @description     Sequential role-based approval of purchase and voucher documents.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.GinMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.NewConnection(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zlog.Named("ws"))
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	stepRepo := repository.NewStepRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	assigner := approval.NewAssigner(userRepo, deptRepo)
	authorizer := approval.NewAuthorizer(cfg.PlaceholderPolicy)

	roleService := service.NewRoleService(txManager, roleRepo, auditRepo, zlog.Named("roles"))
	documentService := service.NewDocumentService(txManager, docRepo, stepRepo, roleRepo, auditRepo, assigner, wsHub, zlog.Named("documents"))
	approvalService := service.NewApprovalService(txManager, docRepo, stepRepo, roleRepo, userRepo, auditRepo, authorizer, wsHub, zlog.Named("approvals"))
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := roleService.EnsureDefaultRoles(ctx); err != nil {
		zlog.Fatal("seeding default roles failed", zap.Error(err))
	}
	cancel()

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	roleHandler := handler.NewRoleHandler(roleService)
	documentHandler := handler.NewDocumentHandler(documentService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	auditHandler := handler.NewAuditHandler(auditService)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zlog.Named("http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	auth := middleware.NewAuthenticator([]byte(cfg.JWTSecret))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth)
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	api := router.Group("/api", auth.RequireAuth())
	roleHandler.RegisterRoutes(api)
	documentHandler.RegisterRoutes(api)
	approvalHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	zlog.Info("server listening", zap.String("port", cfg.Port), zap.String("placeholder_policy", string(authorizer.Policy())))
	if err := router.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server failed", zap.Error(err))
	}
}
