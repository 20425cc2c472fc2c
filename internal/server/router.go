package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/framepoint/framepoint-backend/internal/handlers"
	"github.com/framepoint/framepoint-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	AssetHandler      *handlers.AssetHandler
	AnnotationHandler *handlers.AnnotationHandler
	CommentHandler    *handlers.CommentHandler
	ApprovalHandler   *handlers.ApprovalHandler
	PresenceHandler   *handlers.PresenceHandler
	AllowedOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("framepoint"))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// Assets
	protected.GET("/assets", cfg.AssetHandler.List)
	protected.POST("/assets", cfg.AssetHandler.Create)
	protected.GET("/assets/:id", cfg.AssetHandler.Get)
	protected.POST("/assets/:id/versions", cfg.AssetHandler.AddVersion)
	protected.DELETE("/assets/:id", cfg.AssetHandler.Delete)
	// Annotations
	protected.GET("/annotations", cfg.AnnotationHandler.ListByAsset)
	protected.POST("/annotations", cfg.AnnotationHandler.Create)
	protected.DELETE("/annotations/:id", cfg.AnnotationHandler.Delete)
	// Comments
	protected.GET("/comments", cfg.CommentHandler.ListThreads)
	protected.POST("/comments", cfg.CommentHandler.Create)
	protected.PATCH("/comments/:id/resolve", cfg.CommentHandler.Resolve)
	protected.PATCH("/comments/:id/archive", cfg.CommentHandler.Archive)
	protected.DELETE("/comments/:id", cfg.CommentHandler.Delete)
	protected.POST("/comments/:id/reactions", cfg.CommentHandler.ToggleReaction)
	// Approvals
	protected.GET("/approvals", cfg.ApprovalHandler.GetByAsset)
	protected.POST("/approvals", cfg.ApprovalHandler.Create)
	protected.PATCH("/approvals/:id/mode", cfg.ApprovalHandler.UpdateMode)
	protected.PUT("/approvals/:id/steps", cfg.ApprovalHandler.ReplaceSteps)
	protected.DELETE("/approvals/:id", cfg.ApprovalHandler.Delete)
	protected.PATCH("/approvals/steps/:id/decision", cfg.ApprovalHandler.Decide)
	// Presence
	protected.POST("/presence/:asset_id/join", cfg.PresenceHandler.Join)
	protected.GET("/presence/:asset_id", cfg.PresenceHandler.Viewers)
	protected.POST("/presence/:asset_id/leave", cfg.PresenceHandler.Leave)

	return router
}
