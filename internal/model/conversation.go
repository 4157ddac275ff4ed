package model

import "time"

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ConversationSession 助手会话
// 一旦置为非活跃不会再被复用
type ConversationSession struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    *string   `gorm:"index;size:36" json:"user_id,omitempty"`
	IsActive  bool      `gorm:"index;not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ConversationMessage 会话消息，只追加不修改
// Entities/ToolCalls/ToolResults 为带版本的 JSON 载荷，见 payload.go
type ConversationMessage struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string    `gorm:"size:36;not null;index" json:"session_id"`
	Role        string    `gorm:"size:20;not null" json:"role"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Intent      *string   `gorm:"size:50" json:"intent,omitempty"`
	Entities    *string   `gorm:"type:text" json:"-"`
	ToolCalls   *string   `gorm:"type:text" json:"-"`
	ToolResults *string   `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (ConversationSession) TableName() string {
	return "conversation_sessions"
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
