package router

import (
	"github.com/gin-gonic/gin"

	"umbra.legal/relay/internal/http/handler"
	"umbra.legal/relay/internal/http/middleware"
	"umbra.legal/relay/internal/service"
)

type RouterConfig struct {
	AllowedOrigins []string
}

func SetupRoutes(router *gin.Engine, svc service.RelayService, cfg RouterConfig) {
	h := handler.NewRelayHandler(svc)

	api := router.Group("/api")
	api.Use(middleware.CORS(cfg.AllowedOrigins))
	{
		api.GET("/health", h.Health)
		api.POST("/send-message", h.SendMessage)
		api.POST("/webhook-responses", h.ReceiveResponse)
		api.GET("/pending-responses", h.PendingResponses)
		api.GET("/message-status/:messageId", h.MessageStatus)
		api.DELETE("/clear-cache", h.ClearCache)
	}
}
