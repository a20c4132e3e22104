package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/senseboard-backend/internal/handlers"
)

type RouterConfig struct {
	HealthHandler          *handlers.HealthHandler
	PreflightHandler       *handlers.PreflightHandler
	RoomHandler            *handlers.RoomHandler
	AIPatchHandler         *handlers.AIPatchHandler
	TranscribeHandler      *handlers.TranscribeHandler
	PersonalBoardHandler   *handlers.PersonalBoardHandler
	PersonalizationHandler *handlers.PersonalizationHandler
	WSHandler              *handlers.WSHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("senseboard-backend"))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	router.GET("/health", cfg.HealthHandler.Health)
	router.GET("/ai/preflight", cfg.PreflightHandler.Preflight)
	router.GET("/ws", cfg.WSHandler.Serve)

	roomRoutes := router.Group("/rooms")
	{
		roomRoutes.POST("", cfg.RoomHandler.Create)
		roomRoutes.GET("/:id", cfg.RoomHandler.Get)
		roomRoutes.GET("/:id/prompt-preview", cfg.RoomHandler.PromptPreview)
		roomRoutes.POST("/:id/ai-patch", cfg.AIPatchHandler.Patch)
		roomRoutes.POST("/:id/transcribe", cfg.TranscribeHandler.Transcribe)
		roomRoutes.GET("/:id/personal-board", cfg.PersonalBoardHandler.Get)
		roomRoutes.POST("/:id/personal-board/ai-patch", cfg.PersonalBoardHandler.Patch)
	}

	router.GET("/personalization/context", cfg.PersonalizationHandler.GetContext)
	router.POST("/personalization/context", cfg.PersonalizationHandler.AppendContext)

	return router
}
