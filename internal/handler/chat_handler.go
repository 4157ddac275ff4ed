package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/shop-ai/internal/service"
	"github.com/ashwinyue/shop-ai/internal/service/agent"
)

// ChatHandler 购物助手对话处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建对话处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ChatRequest 对话请求
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// Chat 与购物助手对话
// POST /api/v1/chat
// 携带有效令牌时以令牌身份为准，否则使用请求体中的 user_id
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	userID := getUserID(c)
	if userID == "" {
		userID = req.UserID
	}
	h.run(c, req, userID)
}

// AuthenticatedChat 以登录用户身份对话，忽略请求体中的 user_id
// POST /api/v1/chat/authenticated
func (h *ChatHandler) AuthenticatedChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.run(c, req, getUserID(c))
}

func (h *ChatHandler) run(c *gin.Context, req ChatRequest, userID string) {
	resp, err := h.svc.Agent.Chat(c.Request.Context(), agent.Request{
		Message:   req.Message,
		SessionID: req.SessionID,
		UserID:    userID,
	})
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, resp)
}
