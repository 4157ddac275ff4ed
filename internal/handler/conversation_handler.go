package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/shop-ai/internal/service"
)

// ConversationHandler 会话查看处理器
type ConversationHandler struct {
	svc *service.Services
}

// NewConversationHandler 创建会话处理器
func NewConversationHandler(svc *service.Services) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// Get 获取会话及全部消息
// GET /api/v1/conversations/:session_id
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.svc.Conversations.GetConversation(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, conv)
}
