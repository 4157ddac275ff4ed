// Package conversation 会话状态存储：会话解析、只追加的消息日志和最近历史
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/shop-ai/internal/errx"
	"github.com/ashwinyue/shop-ai/internal/model"
	"github.com/ashwinyue/shop-ai/internal/repository"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// Store 会话状态存储
type Store struct {
	repo  repository.ConversationRepository
	cache *HistoryCache // 可为 nil
}

// NewStore 创建会话存储
func NewStore(repo repository.ConversationRepository, cache *HistoryCache) *Store {
	return &Store{repo: repo, cache: cache}
}

// ResolveSession 复用活跃会话，否则新建
// 提供的 ID 不存在或会话已关闭时静默新建，不会重新激活旧会话
func (s *Store) ResolveSession(ctx context.Context, sessionID string, userID *string) (*model.ConversationSession, error) {
	if sessionID != "" {
		sess, err := s.repo.GetActiveSession(ctx, sessionID)
		if err != nil {
			return nil, errx.WrapDB(err)
		}
		if sess != nil {
			return sess, nil
		}
	}

	sess := &model.ConversationSession{
		ID:       uuid.New().String(),
		UserID:   userID,
		IsActive: true,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, errx.WrapDB(err)
	}
	return sess, nil
}

// RecentHistory 最近 limit 条消息，按时间正序，用于构造提示词
func (s *Store) RecentHistory(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error) {
	if s.cache != nil {
		entries, hit, err := s.cache.Recent(ctx, sessionID, limit)
		if err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("history cache read failed")
		} else if hit {
			return toSchemaMessages(entries), nil
		}
	}

	// 回填缓存时按缓存容量读取，保证缓存列表是完整的最近窗口
	fetch := limit
	if s.cache != nil && s.cache.maxLen > fetch {
		fetch = s.cache.maxLen
	}

	rows, err := s.repo.RecentMessages(ctx, sessionID, fetch)
	if err != nil {
		return nil, errx.WrapDB(err)
	}

	// 数据库按新到旧返回，翻转为正序
	entries := make([]historyEntry, len(rows))
	for i, m := range rows {
		entries[len(rows)-1-i] = historyEntry{Role: m.Role, Content: m.Content}
	}

	if s.cache != nil {
		if err := s.cache.Fill(ctx, sessionID, entries); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("history cache fill failed")
		}
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return toSchemaMessages(entries), nil
}

// AppendUserMessage 写入用户消息及其意图与实体
func (s *Store) AppendUserMessage(ctx context.Context, sessionID, content string, intent model.Intent, entities *model.ExtractedEntities) error {
	msg := &model.ConversationMessage{
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
	}
	in := string(intent)
	msg.Intent = &in

	if !entities.IsEmpty() {
		payload, err := model.EncodePayload(entities)
		if err != nil {
			return err
		}
		msg.Entities = payload
	}
	return s.append(ctx, msg)
}

// AppendAssistantMessage 写入助手回复及工具调用记录
func (s *Store) AppendAssistantMessage(ctx context.Context, sessionID, content string, toolCalls []string, toolResults []json.RawMessage) error {
	msg := &model.ConversationMessage{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   content,
	}
	if len(toolCalls) > 0 {
		payload, err := model.EncodePayload(toolCalls)
		if err != nil {
			return err
		}
		msg.ToolCalls = payload
	}
	if len(toolResults) > 0 {
		payload, err := model.EncodePayload(toolResults)
		if err != nil {
			return err
		}
		msg.ToolResults = payload
	}
	return s.append(ctx, msg)
}

func (s *Store) append(ctx context.Context, msg *model.ConversationMessage) error {
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return errx.WrapDB(fmt.Errorf("append %s message: %w", msg.Role, err))
	}
	if s.cache != nil {
		if err := s.cache.Append(ctx, msg.SessionID, historyEntry{Role: msg.Role, Content: msg.Content}); err != nil {
			logx.Warn().Err(err).Str("session_id", msg.SessionID).Msg("history cache append failed")
		}
	}
	return nil
}

// ========== 会话查看 ==========

// MessageView 对外展示的消息
type MessageView struct {
	ID          uint                     `json:"id"`
	Role        string                   `json:"role"`
	Content     string                   `json:"content"`
	Intent      *string                  `json:"intent,omitempty"`
	Entities    *model.ExtractedEntities `json:"entities,omitempty"`
	ToolCalls   []string                 `json:"tool_calls,omitempty"`
	ToolResults []json.RawMessage        `json:"tool_results,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// Conversation 会话及全部消息
type Conversation struct {
	SessionID string        `json:"session_id"`
	UserID    *string       `json:"user_id,omitempty"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []MessageView `json:"messages"`
}

// GetConversation 获取会话全部消息，会话不存在返回 404 错误
func (s *Store) GetConversation(ctx context.Context, sessionID string) (*Conversation, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errx.WrapDB(err)
	}
	if sess == nil {
		return nil, errx.NotFound("Session not found")
	}

	rows, err := s.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, errx.WrapDB(err)
	}

	conv := &Conversation{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		IsActive:  sess.IsActive,
		CreatedAt: sess.CreatedAt,
		Messages:  make([]MessageView, 0, len(rows)),
	}
	for _, m := range rows {
		view := MessageView{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Intent:    m.Intent,
			CreatedAt: m.CreatedAt,
		}
		if m.Entities != nil {
			var e model.ExtractedEntities
			if err := model.DecodePayload(m.Entities, &e); err != nil {
				return nil, err
			}
			view.Entities = &e
		}
		if err := model.DecodePayload(m.ToolCalls, &view.ToolCalls); err != nil {
			return nil, err
		}
		if err := model.DecodePayload(m.ToolResults, &view.ToolResults); err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, view)
	}
	return conv, nil
}

// ========== 角色转换 ==========

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case model.RoleSystem, model.RoleTool:
		return schema.System
	case model.RoleAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}

func toSchemaMessages(entries []historyEntry) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, &schema.Message{Role: roleToSchema(e.Role), Content: e.Content})
	}
	return msgs
}
