// Package router registers the chat service routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/internal/chat/handler"
)

// Register registers the chat service routes on engine.
func Register(engine *gin.Engine, chatHandler *handler.ChatHandler, systemHandler *handler.SystemHandler) {
	logger.Info("Registering chat routes...")

	engine.GET("/healthz", systemHandler.Healthz)
	engine.GET("/metrics", systemHandler.Metrics)

	// 旧版接口，固定使用默认会话
	engine.POST("/chat", chatHandler.LegacyChat)

	v1 := engine.Group("/v1")
	{
		v1.POST("/chat", chatHandler.Chat)
		v1.GET("/stats", systemHandler.Stats)
	}

	logger.Info("HTTP routes registered")
}
