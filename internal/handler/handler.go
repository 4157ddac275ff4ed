package handler

import (
	"github.com/ashwinyue/shop-ai/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat         *ChatHandler
	Search       *SearchHandler
	Conversation *ConversationHandler
	Admin        *AdminHandler
	System       *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:         NewChatHandler(svc),
		Search:       NewSearchHandler(svc),
		Conversation: NewConversationHandler(svc),
		Admin:        NewAdminHandler(svc),
		System:       NewSystemHandler(svc),
	}
}
