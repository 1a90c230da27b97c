package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "hotel-concierge/internal/app"
	"hotel-concierge/internal/bootstrap"
	"hotel-concierge/internal/transport/http/handler"
	"hotel-concierge/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Log), gin.Recovery(), middleware.CORS(cfg.App.CORSOrigin))
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	chatService := appsvc.NewChatService(
		app.Ledger,
		app.Topics,
		app.Knowledge,
		app.Responder,
		app.Publisher,
		cfg.WorkflowTimeout(),
		app.Log,
	)
	escalationService := appsvc.NewEscalationService(
		app.Ledger,
		app.Forwarder,
		app.Guard,
		app.Publisher,
		cfg.WorkflowTimeout(),
		app.Log,
	)
	adminService := appsvc.NewAdminService(
		app.Ledger,
		app.Topics,
		app.Knowledge,
		app.Extractor,
		cfg.Upload.Dir,
		cfg.Ledger.StatsRecentLimit,
		app.Log,
	)
	authService := appsvc.NewAuthService(
		cfg.Auth.AdminPasswordHash,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)

	healthHandler := handler.NewHealthHandler(app)
	chatHandler := handler.NewChatHandler(chatService, escalationService)
	adminHandler := handler.NewAdminHandler(adminService, authService, cfg.MaxUploadBytes())

	router.GET("/healthz", healthHandler.Check)

	api := router.Group("/api")
	chatGroup := api.Group("/chat")
	chatGroup.POST("/message", chatHandler.SendMessage)
	chatGroup.GET("/history", chatHandler.GetHistory)
	chatGroup.POST("/escalate", chatHandler.Escalate)

	adminGroup := api.Group("/admin")
	adminGroup.POST("/login", adminHandler.Login)
	protected := adminGroup.Group("")
	protected.Use(middleware.AdminJWT(authService.Enabled(), authService.Secret()))
	protected.POST("/pdf", adminHandler.UploadPDF)
	protected.POST("/upload", adminHandler.UploadPDF)
	protected.GET("/stats", adminHandler.Stats)

	return router
}
