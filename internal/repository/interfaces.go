// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"

	"github.com/ashwinyue/shop-ai/internal/model"
)

// ========== CatalogRepository 接口 ==========

// CatalogRepository 商品目录只读访问（Upsert 仅用于导入演示数据）
// 查询不到返回 (nil, nil)
type CatalogRepository interface {
	GetByID(ctx context.Context, id uint) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*model.Product, error)
	ListActive(ctx context.Context, offset, limit int, category string) ([]*model.Product, error)
	CountActive(ctx context.Context) (int64, error)
	Upsert(ctx context.Context, products []*model.Product) error
}

// ========== OrderRepository 接口 ==========

// OrderRepository 订单只读访问
type OrderRepository interface {
	GetByID(ctx context.Context, id uint) (*model.Order, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Order, error)
}

// ========== ConversationRepository 接口 ==========

// ConversationRepository 会话与消息持久化，消息只追加
type ConversationRepository interface {
	CreateSession(ctx context.Context, session *model.ConversationSession) error
	GetSession(ctx context.Context, id string) (*model.ConversationSession, error)
	GetActiveSession(ctx context.Context, id string) (*model.ConversationSession, error)
	AppendMessage(ctx context.Context, msg *model.ConversationMessage) error
	// RecentMessages 最近 limit 条消息，按新到旧排列
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ConversationMessage, error)
	// ListMessages 全部消息，按写入顺序排列
	ListMessages(ctx context.Context, sessionID string) ([]*model.ConversationMessage, error)
}

// 确保实现了接口
var (
	_ CatalogRepository      = (*catalogRepository)(nil)
	_ OrderRepository        = (*orderRepository)(nil)
	_ ConversationRepository = (*conversationRepository)(nil)
)
