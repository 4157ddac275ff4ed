package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/shop-ai/internal/handler"
	"github.com/ashwinyue/shop-ai/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, tokens middleware.TokenValidator) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	v1.Use(middleware.OptionalAuth(tokens))
	{
		v1.POST("/chat", h.Chat.Chat)
		v1.POST("/search", h.Search.Search)
		v1.GET("/products/:id/recommendations", h.Search.Recommendations)
		v1.GET("/conversations/:session_id", h.Conversation.Get)
	}

	// 需要登录
	authed := r.Group("/api/v1")
	authed.Use(middleware.RequireAuth(tokens))
	{
		authed.POST("/chat/authenticated", h.Chat.AuthenticatedChat)
		authed.POST("/admin/index-products", h.Admin.IndexProducts)
	}

	return r
}
