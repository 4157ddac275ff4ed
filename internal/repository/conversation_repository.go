package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ashwinyue/shop-ai/internal/model"
)

// conversationRepository 会话数据访问
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话仓库
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// CreateSession 创建会话
func (r *conversationRepository) CreateSession(ctx context.Context, session *model.ConversationSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetSession 获取会话（含非活跃）
func (r *conversationRepository) GetSession(ctx context.Context, id string) (*model.ConversationSession, error) {
	var s model.ConversationSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	return notFoundToNil(&s, err)
}

// GetActiveSession 获取活跃会话
func (r *conversationRepository) GetActiveSession(ctx context.Context, id string) (*model.ConversationSession, error) {
	var s model.ConversationSession
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&s).Error
	return notFoundToNil(&s, err)
}

// AppendMessage 追加消息
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.ConversationMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// RecentMessages 获取会话最近的 N 条消息
// 自增 ID 即写入顺序，避免同一时间戳下的乱序
func (r *conversationRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ConversationMessage, error) {
	var messages []*model.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// ListMessages 获取会话全部消息
func (r *conversationRepository) ListMessages(ctx context.Context, sessionID string) ([]*model.ConversationMessage, error) {
	var messages []*model.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}
